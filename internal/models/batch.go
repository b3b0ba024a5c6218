package models

// Batch is a student group that follows one shared timetable.
type Batch struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	StudentCount int      `json:"student_count"`
	SubjectIDs   []string `json:"subject_ids"`

	// AllowedRoomIDs, when non-empty, restricts the batch to those rooms.
	AllowedRoomIDs []string `json:"allowed_room_ids,omitempty"`
}

// RoomAllowed reports whether the batch may be placed in the room. An empty
// restriction set allows every room.
func (b Batch) RoomAllowed(roomID string) bool {
	if len(b.AllowedRoomIDs) == 0 {
		return true
	}
	for _, id := range b.AllowedRoomIDs {
		if id == roomID {
			return true
		}
	}
	return false
}
