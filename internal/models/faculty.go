package models

// Faculty is a teacher with the subjects they are qualified for and optional
// slot preferences. PreferredSlots maps a day index to the slots the faculty
// prefers on that day; an empty map means no preference.
type Faculty struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	SubjectIDs     []string      `json:"subject_ids"`
	PreferredSlots map[int][]int `json:"preferred_slots,omitempty"`
}

// Qualified reports whether the faculty can teach the subject.
func (f Faculty) Qualified(subjectID string) bool {
	for _, id := range f.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}

// FacultyAvailability restricts when a faculty may be scheduled. AllowedSlots
// maps a day index to the slots the faculty is available; once a constraint
// exists, a day without an entry is fully blocked.
type FacultyAvailability struct {
	FacultyID    string        `json:"faculty_id"`
	AllowedSlots map[int][]int `json:"allowed_slots"`
}

// Allows reports whether the faculty may be scheduled at (day, slot).
func (av FacultyAvailability) Allows(day, slot int) bool {
	slots, ok := av.AllowedSlots[day]
	if !ok {
		return false
	}
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

// FacultyAllocation records the caller's preferred faculty for a batch and
// subject pairing. The engine honors it when those faculty are free and falls
// back to any qualified faculty otherwise.
type FacultyAllocation struct {
	BatchID    string   `json:"batch_id"`
	SubjectID  string   `json:"subject_id"`
	FacultyIDs []string `json:"faculty_ids"`
}
