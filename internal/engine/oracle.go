package engine

import "github.com/noah-isme/sma-uctp-engine/internal/models"

// The availability oracle answers pure, side-effect free questions about a
// candidate timetable. Every placement decision in the initializer, the
// operators, and the repair engine goes through it.

// batchFree reports whether the batch has no session at (day, slot).
func batchFree(t *models.Timetable, batchID string, day, slot int) bool {
	return t.InBounds(day, slot) && t.At(batchID, day, slot) == nil
}

// facultyFree reports whether the faculty teaches nowhere at (day, slot) and
// is allowed there by their availability constraint. exclude, when non-nil, is
// skipped so an assignment can be validated against the rest of the grid.
func (e *Engine) facultyFree(t *models.Timetable, facultyID string, day, slot int, exclude *models.ClassAssignment) bool {
	if av, ok := e.snap.availability[facultyID]; ok && !av.Allows(day, slot) {
		return false
	}
	for _, batchID := range e.snap.batchIDs {
		a := t.At(batchID, day, slot)
		if a == nil || a == exclude {
			continue
		}
		if a.Taught(facultyID) {
			return false
		}
	}
	return true
}

// roomFree reports whether the room is unoccupied at (day, slot) and suitable
// for the batch and subject: category match, sufficient capacity, and batch
// room restrictions.
func (e *Engine) roomFree(t *models.Timetable, roomID string, day, slot int, batchID, subjectID string, exclude *models.ClassAssignment) bool {
	room, ok := e.snap.rooms[roomID]
	if !ok {
		return false
	}
	subject := e.snap.subjects[subjectID]
	if room.Category != subject.Category.RoomCategory() {
		return false
	}
	batch := e.snap.batches[batchID]
	if room.Capacity < batch.StudentCount {
		return false
	}
	if !batch.RoomAllowed(roomID) {
		return false
	}
	for _, otherID := range e.snap.batchIDs {
		a := t.At(otherID, day, slot)
		if a == nil || a == exclude {
			continue
		}
		if a.RoomID == roomID {
			return false
		}
	}
	return true
}

// placementFree bundles the three oracle checks for a full assignment at its
// own coordinates, excluding the assignment itself.
func (e *Engine) placementFree(t *models.Timetable, a *models.ClassAssignment) bool {
	if !t.InBounds(a.Day, a.Slot) {
		return false
	}
	if cell := t.At(a.BatchID, a.Day, a.Slot); cell != nil && cell != a {
		return false
	}
	for _, facultyID := range a.FacultyIDs {
		if !e.facultyFree(t, facultyID, a.Day, a.Slot, a) {
			return false
		}
	}
	return e.roomFree(t, a.RoomID, a.Day, a.Slot, a.BatchID, a.SubjectID, a)
}
