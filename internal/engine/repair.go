package engine

import (
	"math/rand"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

// repair restores near-validity after variation: it lifts conflicting
// non-pinned assignments off the grid, tops the lift list up with any sessions
// missing against the weekly hours, and re-places everything with bounded
// random draws. Sessions that cannot be re-placed stay off the grid and count
// as hard conflicts at evaluation. Returns the number of sessions left
// unplaced.
func (e *Engine) repair(rng *rand.Rand, ind *Individual) int {
	t := ind.Timetable

	var lifted []sessionRequest
	for _, a := range t.Assignments() {
		if a.Pinned {
			continue
		}
		if e.assignmentConflicted(t, a) {
			t.Remove(a.BatchID, a.Day, a.Slot)
			lifted = append(lifted, sessionRequest{batchID: a.BatchID, subjectID: a.SubjectID})
		}
	}

	lifted = append(lifted, e.sessionQueue(t)...)

	unplaced := 0
	for _, req := range lifted {
		if !e.replaceSession(rng, t, req) {
			unplaced++
		}
	}
	return unplaced
}

// assignmentConflicted reports whether the assignment violates faculty
// availability, double-books a faculty, or double-books its room against the
// rest of the grid.
func (e *Engine) assignmentConflicted(t *models.Timetable, a *models.ClassAssignment) bool {
	for _, facultyID := range a.FacultyIDs {
		if !e.facultyFree(t, facultyID, a.Day, a.Slot, a) {
			return true
		}
	}
	return !e.roomFree(t, a.RoomID, a.Day, a.Slot, a.BatchID, a.SubjectID, a)
}

// replaceSession places one session with bounded random draws, re-selecting
// faculty and room for each candidate cell.
func (e *Engine) replaceSession(rng *rand.Rand, t *models.Timetable, req sessionRequest) bool {
	for attempt := 0; attempt < e.cfg.RepairAttempts; attempt++ {
		day := rng.Intn(t.Days)
		slot := rng.Intn(t.SlotsPerDay)
		if a := e.buildAssignment(rng, t, req, day, slot); a != nil {
			t.Place(a)
			return true
		}
	}
	return false
}
