package models

// ClassAssignment is a single placed session: one batch taught one subject by
// one or more faculty in one room at (day, slot).
type ClassAssignment struct {
	ID         string   `json:"id"`
	SubjectID  string   `json:"subject_id"`
	FacultyIDs []string `json:"faculty_ids"`
	RoomID     string   `json:"room_id"`
	BatchID    string   `json:"batch_id"`
	Day        int      `json:"day"`
	Slot       int      `json:"slot"`
	Pinned     bool     `json:"pinned,omitempty"`
}

// Clone returns a deep copy of the assignment.
func (a *ClassAssignment) Clone() *ClassAssignment {
	if a == nil {
		return nil
	}
	clone := *a
	clone.FacultyIDs = make([]string, len(a.FacultyIDs))
	copy(clone.FacultyIDs, a.FacultyIDs)
	return &clone
}

// Taught reports whether the faculty takes part in this assignment.
func (a *ClassAssignment) Taught(facultyID string) bool {
	for _, id := range a.FacultyIDs {
		if id == facultyID {
			return true
		}
	}
	return false
}

// PinnedAssignment is a hard-anchored placement. It expands to the cross
// product of Days and StartSlots, each occupying Duration consecutive slots.
type PinnedAssignment struct {
	ID         string   `json:"id"`
	SubjectID  string   `json:"subject_id"`
	FacultyIDs []string `json:"faculty_ids"`
	RoomID     string   `json:"room_id"`
	BatchID    string   `json:"batch_id"`
	Days       []int    `json:"days"`
	StartSlots []int    `json:"start_slots"`
	Duration   int      `json:"duration"`
}
