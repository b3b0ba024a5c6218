package models

// SubjectCategory drives the required room category and faculty headcount.
type SubjectCategory string

const (
	SubjectTheory    SubjectCategory = "THEORY"
	SubjectPractical SubjectCategory = "PRACTICAL"
	SubjectWorkshop  SubjectCategory = "WORKSHOP"
)

// RoomCategory returns the room category a session of this subject requires.
func (c SubjectCategory) RoomCategory() RoomCategory {
	switch c {
	case SubjectPractical:
		return RoomLab
	case SubjectWorkshop:
		return RoomWorkshop
	default:
		return RoomLecture
	}
}

// FacultyHeadcount returns the minimum number of faculty a session needs.
// Practical sessions are co-taught.
func (c SubjectCategory) FacultyHeadcount() int {
	if c == SubjectPractical {
		return 2
	}
	return 1
}

// Subject represents an academic subject with its weekly demand.
type Subject struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	HoursPerWeek int             `json:"hours_per_week"`
	Category     SubjectCategory `json:"category"`
}
