package engine

import (
	"math"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

// evaluate scores the individual in place against the current constraint
// weights. The score only reflects soft constraints; hard conflicts are
// reported separately because the repair engine keeps the grids near-valid and
// the residue is diagnostic, not a gradient.
func (e *Engine) evaluate(ind *Individual) {
	t := ind.Timetable

	studentGaps := e.countStudentGaps(t)
	facultyGaps, workload := e.facultyGapsAndWorkload(t)
	stdDev := populationStdDev(workload, len(e.snap.facultyIDs))
	violations := e.countPreferenceViolations(t)

	w := e.weights
	score := 1000 -
		float64(studentGaps)*w.StudentGaps -
		float64(facultyGaps)*w.FacultyGaps -
		stdDev*w.FacultyWorkload -
		float64(violations)*w.PreferenceViolations
	if score < 0 {
		score = 0
	}

	ind.Metrics = models.TimetableMetrics{
		Score:                 score,
		HardConflicts:         e.countHardConflicts(t),
		StudentGaps:           studentGaps,
		FacultyGaps:           facultyGaps,
		FacultyWorkloadStdDev: stdDev,
		PreferenceViolations:  violations,
	}
}

// countStudentGaps sums, per batch and day, the idle slots strictly between
// the first and last occupied slot.
func (e *Engine) countStudentGaps(t *models.Timetable) int {
	gaps := 0
	for _, batchID := range e.snap.batchIDs {
		for day := 0; day < t.Days; day++ {
			first, last, occupied := -1, -1, 0
			for slot := 0; slot < t.SlotsPerDay; slot++ {
				if t.At(batchID, day, slot) == nil {
					continue
				}
				if first < 0 {
					first = slot
				}
				last = slot
				occupied++
			}
			if occupied > 1 {
				gaps += last - first + 1 - occupied
			}
		}
	}
	return gaps
}

// facultyGapsAndWorkload walks the whole week once and returns the summed
// per-faculty idle gaps plus each faculty's total taught slots.
func (e *Engine) facultyGapsAndWorkload(t *models.Timetable) (int, map[string]int) {
	workload := make(map[string]int, len(e.snap.facultyIDs))
	gaps := 0

	for _, facultyID := range e.snap.facultyIDs {
		for day := 0; day < t.Days; day++ {
			first, last, taught := -1, -1, 0
			for slot := 0; slot < t.SlotsPerDay; slot++ {
				if !e.facultyTeachesAt(t, facultyID, day, slot) {
					continue
				}
				if first < 0 {
					first = slot
				}
				last = slot
				taught++
			}
			workload[facultyID] += taught
			if taught > 1 {
				gaps += last - first + 1 - taught
			}
		}
	}
	return gaps, workload
}

func (e *Engine) facultyTeachesAt(t *models.Timetable, facultyID string, day, slot int) bool {
	for _, batchID := range e.snap.batchIDs {
		if a := t.At(batchID, day, slot); a != nil && a.Taught(facultyID) {
			return true
		}
	}
	return false
}

// countPreferenceViolations counts taught slots that fall outside a faculty's
// declared preferences. Faculty without preferences never violate.
func (e *Engine) countPreferenceViolations(t *models.Timetable) int {
	violations := 0
	for _, a := range t.Assignments() {
		for _, facultyID := range a.FacultyIDs {
			f := e.snap.faculty[facultyID]
			if len(f.PreferredSlots) == 0 {
				continue
			}
			if !slotPreferred(f.PreferredSlots, a.Day, a.Slot) {
				violations++
			}
		}
	}
	return violations
}

func slotPreferred(preferred map[int][]int, day, slot int) bool {
	for _, s := range preferred[day] {
		if s == slot {
			return true
		}
	}
	return false
}

// countHardConflicts counts residual faculty and room double-bookings plus the
// session shortfall against the required weekly hours.
func (e *Engine) countHardConflicts(t *models.Timetable) int {
	conflicts := 0
	for day := 0; day < t.Days; day++ {
		for slot := 0; slot < t.SlotsPerDay; slot++ {
			facultySeen := make(map[string]int)
			roomSeen := make(map[string]int)
			for _, batchID := range e.snap.batchIDs {
				a := t.At(batchID, day, slot)
				if a == nil {
					continue
				}
				for _, facultyID := range a.FacultyIDs {
					facultySeen[facultyID]++
				}
				roomSeen[a.RoomID]++
				for _, facultyID := range a.FacultyIDs {
					if av, ok := e.snap.availability[facultyID]; ok && !av.Allows(day, slot) {
						conflicts++
					}
				}
			}
			for _, n := range facultySeen {
				if n > 1 {
					conflicts += n - 1
				}
			}
			for _, n := range roomSeen {
				if n > 1 {
					conflicts += n - 1
				}
			}
		}
	}

	placed := e.placedSessions(t)
	for _, batch := range e.snap.batches {
		for _, subjectID := range batch.SubjectIDs {
			required := e.snap.subjects[subjectID].HoursPerWeek
			if n := placed[allocationKey(batch.ID, subjectID)]; n < required {
				conflicts += required - n
			}
		}
	}
	return conflicts
}

// placedSessions counts placed sessions per batch/subject pairing.
func (e *Engine) placedSessions(t *models.Timetable) map[string]int {
	placed := make(map[string]int)
	for _, a := range t.Assignments() {
		placed[allocationKey(a.BatchID, a.SubjectID)]++
	}
	return placed
}

// populationStdDev computes the population standard deviation of per-faculty
// workloads across all n faculty, counting absent entries as zero.
func populationStdDev(workload map[string]int, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0
	for _, w := range workload {
		sum += w
	}
	mean := float64(sum) / float64(n)

	var variance float64
	counted := 0
	for _, w := range workload {
		d := float64(w) - mean
		variance += d * d
		counted++
	}
	variance += float64(n-counted) * mean * mean
	return math.Sqrt(variance / float64(n))
}
