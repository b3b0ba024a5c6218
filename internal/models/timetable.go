package models

import (
	"fmt"
	"sort"
	"strings"
)

// WeekGeometry defines the working week the timetable is laid out on.
type WeekGeometry struct {
	Days        int `json:"days"`
	SlotsPerDay int `json:"slots_per_day"`
}

// ConstraintWeights scales the soft-constraint penalties in the fitness score.
type ConstraintWeights struct {
	StudentGaps          float64 `json:"student_gaps"`
	FacultyGaps          float64 `json:"faculty_gaps"`
	FacultyWorkload      float64 `json:"faculty_workload"`
	PreferenceViolations float64 `json:"preference_violations"`
}

// DefaultConstraintWeights is the baseline weighting used when the caller
// supplies none.
var DefaultConstraintWeights = ConstraintWeights{
	StudentGaps:          4,
	FacultyGaps:          2,
	FacultyWorkload:      3,
	PreferenceViolations: 1,
}

// TimetableMetrics is the scored breakdown of one candidate timetable.
type TimetableMetrics struct {
	Score                 float64 `json:"score"`
	HardConflicts         int     `json:"hard_conflicts"`
	StudentGaps           int     `json:"student_gaps"`
	FacultyGaps           int     `json:"faculty_gaps"`
	FacultyWorkloadStdDev float64 `json:"faculty_workload_std_dev"`
	PreferenceViolations  int     `json:"preference_violations"`
}

// Timetable holds every batch grid of a candidate solution. Each batch maps to
// a flat day-major slice of length Days*SlotsPerDay; nil cells are free.
// Invariant: an assignment stored at (batch, day, slot) carries exactly those
// coordinates in its own fields.
type Timetable struct {
	Days        int
	SlotsPerDay int
	Grid        map[string][]*ClassAssignment
}

// NewTimetable builds an empty timetable covering the given batches.
func NewTimetable(geom WeekGeometry, batchIDs []string) *Timetable {
	grid := make(map[string][]*ClassAssignment, len(batchIDs))
	for _, id := range batchIDs {
		grid[id] = make([]*ClassAssignment, geom.Days*geom.SlotsPerDay)
	}
	return &Timetable{Days: geom.Days, SlotsPerDay: geom.SlotsPerDay, Grid: grid}
}

func (t *Timetable) index(day, slot int) int {
	return day*t.SlotsPerDay + slot
}

// InBounds reports whether (day, slot) lies on the grid.
func (t *Timetable) InBounds(day, slot int) bool {
	return day >= 0 && day < t.Days && slot >= 0 && slot < t.SlotsPerDay
}

// At returns the assignment occupying (batch, day, slot), or nil.
func (t *Timetable) At(batchID string, day, slot int) *ClassAssignment {
	cells, ok := t.Grid[batchID]
	if !ok || !t.InBounds(day, slot) {
		return nil
	}
	return cells[t.index(day, slot)]
}

// Place stores the assignment at its own coordinates. It refuses occupied or
// out-of-bounds cells.
func (t *Timetable) Place(a *ClassAssignment) bool {
	cells, ok := t.Grid[a.BatchID]
	if !ok || !t.InBounds(a.Day, a.Slot) {
		return false
	}
	idx := t.index(a.Day, a.Slot)
	if cells[idx] != nil {
		return false
	}
	cells[idx] = a
	return true
}

// Remove clears (batch, day, slot) and returns the removed assignment, if any.
func (t *Timetable) Remove(batchID string, day, slot int) *ClassAssignment {
	cells, ok := t.Grid[batchID]
	if !ok || !t.InBounds(day, slot) {
		return nil
	}
	idx := t.index(day, slot)
	a := cells[idx]
	cells[idx] = nil
	return a
}

// Assignments returns every placed assignment in deterministic batch/day/slot
// order.
func (t *Timetable) Assignments() []*ClassAssignment {
	batchIDs := make([]string, 0, len(t.Grid))
	for id := range t.Grid {
		batchIDs = append(batchIDs, id)
	}
	sort.Strings(batchIDs)

	var out []*ClassAssignment
	for _, id := range batchIDs {
		for _, a := range t.Grid[id] {
			if a != nil {
				out = append(out, a)
			}
		}
	}
	return out
}

// Clone returns a deep copy sharing no state with the receiver.
func (t *Timetable) Clone() *Timetable {
	grid := make(map[string][]*ClassAssignment, len(t.Grid))
	for id, cells := range t.Grid {
		copied := make([]*ClassAssignment, len(cells))
		for i, a := range cells {
			copied[i] = a.Clone()
		}
		grid[id] = copied
	}
	return &Timetable{Days: t.Days, SlotsPerDay: t.SlotsPerDay, Grid: grid}
}

// Fingerprint renders the timetable content as a canonical string so that two
// candidates can be compared for pairwise distinctness.
func (t *Timetable) Fingerprint() string {
	var b strings.Builder
	for _, a := range t.Assignments() {
		faculty := make([]string, len(a.FacultyIDs))
		copy(faculty, a.FacultyIDs)
		sort.Strings(faculty)
		fmt.Fprintf(&b, "%s|%s|%s|%s|%d|%d;", a.BatchID, a.SubjectID, a.RoomID, strings.Join(faculty, ","), a.Day, a.Slot)
	}
	return b.String()
}
