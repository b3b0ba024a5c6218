package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

func TestEvaluateScoreBreakdown(t *testing.T) {
	e := newTestEngine(t, func(p *Problem) {
		p.Faculty[0].PreferredSlots = map[int][]int{0: {0}}
	})

	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	place(t, tt, "a1", "b-1", "s-math", "r-1", []string{"f-1"}, 0, 0)
	place(t, tt, "a2", "b-1", "s-math", "r-1", []string{"f-1"}, 0, 2)

	ind := &Individual{Timetable: tt}
	e.evaluate(ind)

	m := ind.Metrics
	assert.Equal(t, 1, m.StudentGaps, "idle slot 1 between slots 0 and 2")
	assert.Equal(t, 1, m.FacultyGaps)
	assert.Equal(t, 1, m.PreferenceViolations, "slot 2 is outside f-1's preference")

	// Workloads are f-1: 2, rest 0 across four faculty.
	wantStdDev := math.Sqrt(0.75)
	assert.InDelta(t, wantStdDev, m.FacultyWorkloadStdDev, 1e-9)

	wantScore := 1000 - 1*4.0 - 1*2.0 - wantStdDev*3 - 1*1.0
	assert.InDelta(t, wantScore, m.Score, 1e-9)
}

func TestEvaluateCountsHardConflicts(t *testing.T) {
	e := newTestEngine(t, nil)
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	place(t, tt, "a1", "b-1", "s-math", "r-1", []string{"f-1"}, 0, 0)
	place(t, tt, "a2", "b-2", "s-math", "r-1", []string{"f-1"}, 0, 0)

	ind := &Individual{Timetable: tt}
	e.evaluate(ind)

	// One faculty double-booking, one room double-booking, and 10 of the 12
	// required weekly sessions are missing.
	assert.Equal(t, 12, ind.Metrics.HardConflicts)
}

func TestEvaluateCountsAvailabilityViolations(t *testing.T) {
	e := newTestEngine(t, func(p *Problem) {
		p.Availability = []models.FacultyAvailability{
			{FacultyID: "f-1", AllowedSlots: map[int][]int{1: {0}}},
		}
	})
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	place(t, tt, "a1", "b-1", "s-math", "r-1", []string{"f-1"}, 0, 0)

	ind := &Individual{Timetable: tt}
	e.evaluate(ind)

	// One availability violation plus 11 missing sessions.
	assert.Equal(t, 12, ind.Metrics.HardConflicts)
}

func TestEvaluateClampsScoreAtZero(t *testing.T) {
	e := newTestEngine(t, func(p *Problem) {
		p.Weights = models.ConstraintWeights{StudentGaps: 1e6, FacultyGaps: 1e6, FacultyWorkload: 1e6, PreferenceViolations: 1e6}
	})
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	place(t, tt, "a1", "b-1", "s-math", "r-1", []string{"f-1"}, 0, 0)
	place(t, tt, "a2", "b-1", "s-math", "r-1", []string{"f-1"}, 0, 3)

	ind := &Individual{Timetable: tt}
	e.evaluate(ind)
	assert.Equal(t, 0.0, ind.Metrics.Score)
}

func TestEvaluateEmptyTimetable(t *testing.T) {
	e := newTestEngine(t, nil)
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)

	ind := &Individual{Timetable: tt}
	e.evaluate(ind)

	assert.Equal(t, 1000.0, ind.Metrics.Score, "no placements means no soft penalties")
	assert.Equal(t, 12, ind.Metrics.HardConflicts, "but every required session is missing")
}
