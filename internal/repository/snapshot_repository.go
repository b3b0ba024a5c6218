// Package repository loads the optimization inputs from PostgreSQL. The
// engine itself never touches the database; the service assembles a snapshot
// from these readers and hands it over.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

// SnapshotRepository reads the scheduling entities the engine needs.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

type batchRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	StudentCount   int            `db:"student_count"`
	SubjectIDs     pq.StringArray `db:"subject_ids"`
	AllowedRoomIDs pq.StringArray `db:"allowed_room_ids"`
}

// ListBatches returns the requested batches.
func (r *SnapshotRepository) ListBatches(ctx context.Context, ids []string) ([]models.Batch, error) {
	const query = `SELECT id, name, student_count, subject_ids, allowed_room_ids FROM batches WHERE id = ANY($1) ORDER BY name ASC`
	var rows []batchRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	batches := make([]models.Batch, 0, len(rows))
	for _, row := range rows {
		batches = append(batches, models.Batch{
			ID:             row.ID,
			Name:           row.Name,
			StudentCount:   row.StudentCount,
			SubjectIDs:     row.SubjectIDs,
			AllowedRoomIDs: row.AllowedRoomIDs,
		})
	}
	return batches, nil
}

// ListSubjects returns the subjects referenced by the given ids.
func (r *SnapshotRepository) ListSubjects(ctx context.Context, ids []string) ([]models.Subject, error) {
	const query = `SELECT id, code, name, hours_per_week, category FROM subjects WHERE id = ANY($1) ORDER BY code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

type facultyRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	SubjectIDs     pq.StringArray `db:"subject_ids"`
	PreferredSlots types.JSONText `db:"preferred_slots"`
}

// ListFaculty returns every faculty member with their qualifications and slot
// preferences.
func (r *SnapshotRepository) ListFaculty(ctx context.Context) ([]models.Faculty, error) {
	const query = `SELECT id, name, subject_ids, preferred_slots FROM faculty ORDER BY name ASC`
	var rows []facultyRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	faculty := make([]models.Faculty, 0, len(rows))
	for _, row := range rows {
		preferred, err := decodeSlotMap(row.PreferredSlots)
		if err != nil {
			return nil, fmt.Errorf("decode preferred slots for faculty %s: %w", row.ID, err)
		}
		faculty = append(faculty, models.Faculty{
			ID:             row.ID,
			Name:           row.Name,
			SubjectIDs:     row.SubjectIDs,
			PreferredSlots: preferred,
		})
	}
	return faculty, nil
}

// ListRooms returns every room.
func (r *SnapshotRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT id, name, capacity, category FROM rooms ORDER BY name ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

type pinnedRow struct {
	ID         string         `db:"id"`
	SubjectID  string         `db:"subject_id"`
	FacultyIDs pq.StringArray `db:"faculty_ids"`
	RoomID     string         `db:"room_id"`
	BatchID    string         `db:"batch_id"`
	Days       pq.Int64Array  `db:"days"`
	StartSlots pq.Int64Array  `db:"start_slots"`
	Duration   int            `db:"duration"`
}

// ListPinned returns the pinned assignments of the given batches.
func (r *SnapshotRepository) ListPinned(ctx context.Context, batchIDs []string) ([]models.PinnedAssignment, error) {
	const query = `SELECT id, subject_id, faculty_ids, room_id, batch_id, days, start_slots, duration
FROM pinned_assignments WHERE batch_id = ANY($1) ORDER BY id ASC`
	var rows []pinnedRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(batchIDs)); err != nil {
		return nil, fmt.Errorf("list pinned assignments: %w", err)
	}
	pinned := make([]models.PinnedAssignment, 0, len(rows))
	for _, row := range rows {
		pinned = append(pinned, models.PinnedAssignment{
			ID:         row.ID,
			SubjectID:  row.SubjectID,
			FacultyIDs: row.FacultyIDs,
			RoomID:     row.RoomID,
			BatchID:    row.BatchID,
			Days:       toInts(row.Days),
			StartSlots: toInts(row.StartSlots),
			Duration:   row.Duration,
		})
	}
	return pinned, nil
}

type availabilityRow struct {
	FacultyID    string         `db:"faculty_id"`
	AllowedSlots types.JSONText `db:"allowed_slots"`
}

// ListAvailability returns every stored availability constraint.
func (r *SnapshotRepository) ListAvailability(ctx context.Context) ([]models.FacultyAvailability, error) {
	const query = `SELECT faculty_id, allowed_slots FROM faculty_availability ORDER BY faculty_id ASC`
	var rows []availabilityRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list faculty availability: %w", err)
	}
	out := make([]models.FacultyAvailability, 0, len(rows))
	for _, row := range rows {
		allowed, err := decodeSlotMap(row.AllowedSlots)
		if err != nil {
			return nil, fmt.Errorf("decode allowed slots for faculty %s: %w", row.FacultyID, err)
		}
		out = append(out, models.FacultyAvailability{FacultyID: row.FacultyID, AllowedSlots: allowed})
	}
	return out, nil
}

type allocationRow struct {
	BatchID    string         `db:"batch_id"`
	SubjectID  string         `db:"subject_id"`
	FacultyIDs pq.StringArray `db:"faculty_ids"`
}

// ListAllocations returns the preferred faculty allocations of the given
// batches.
func (r *SnapshotRepository) ListAllocations(ctx context.Context, batchIDs []string) ([]models.FacultyAllocation, error) {
	const query = `SELECT batch_id, subject_id, faculty_ids FROM faculty_allocations WHERE batch_id = ANY($1) ORDER BY batch_id ASC, subject_id ASC`
	var rows []allocationRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(batchIDs)); err != nil {
		return nil, fmt.Errorf("list faculty allocations: %w", err)
	}
	out := make([]models.FacultyAllocation, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.FacultyAllocation{
			BatchID:    row.BatchID,
			SubjectID:  row.SubjectID,
			FacultyIDs: row.FacultyIDs,
		})
	}
	return out, nil
}

// decodeSlotMap parses a jsonb column shaped {"0": [1, 2]} into day-keyed slot
// lists. NULL and empty payloads decode to nil.
func decodeSlotMap(raw types.JSONText) (map[int][]int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var byDay map[string][]int
	if err := json.Unmarshal(raw, &byDay); err != nil {
		return nil, err
	}
	if len(byDay) == 0 {
		return nil, nil
	}
	out := make(map[int][]int, len(byDay))
	for key, slots := range byDay {
		day, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid day key %q", key)
		}
		out[day] = slots
	}
	return out, nil
}

func toInts(arr pq.Int64Array) []int {
	out := make([]int, len(arr))
	for i, v := range arr {
		out[i] = int(v)
	}
	return out
}
