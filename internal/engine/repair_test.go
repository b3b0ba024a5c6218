package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

func TestRepairResolvesFacultyDoubleBooking(t *testing.T) {
	e := newTestEngine(t, nil)
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	place(t, tt, "a1", "b-1", "s-math", "r-1", []string{"f-1"}, 0, 0)
	place(t, tt, "dup", "b-2", "s-math", "r-2", []string{"f-1"}, 0, 0)
	ind := &Individual{Timetable: tt}

	unplaced := e.repair(testRNG(), ind)

	assert.Equal(t, 0, unplaced)
	assert.Len(t, tt.Assignments(), 12, "repair also tops up the missing sessions")
	for _, x := range tt.Assignments() {
		assert.False(t, e.assignmentConflicted(tt, x))
	}
}

func TestRepairTopsUpMissingSessions(t *testing.T) {
	e := newTestEngine(t, nil)
	ind := e.newIndividual(testRNG(), nil)
	require.Empty(t, e.sessionQueue(ind.Timetable))

	removed := ind.Timetable.Assignments()[0]
	ind.Timetable.Remove(removed.BatchID, removed.Day, removed.Slot)
	require.Len(t, e.sessionQueue(ind.Timetable), 1)

	unplaced := e.repair(testRNG(), ind)
	assert.Equal(t, 0, unplaced)
	assert.Empty(t, e.sessionQueue(ind.Timetable))
}

func TestRepairNeverTouchesPinned(t *testing.T) {
	e := newTestEngine(t, func(p *Problem) {
		// Two pinned sessions that double-book f-1 on purpose.
		p.Pinned = []models.PinnedAssignment{
			{ID: "pin-1", SubjectID: "s-math", FacultyIDs: []string{"f-1"}, RoomID: "r-1", BatchID: "b-1", Days: []int{0}, StartSlots: []int{0}, Duration: 1},
			{ID: "pin-2", SubjectID: "s-math", FacultyIDs: []string{"f-1"}, RoomID: "r-2", BatchID: "b-2", Days: []int{0}, StartSlots: []int{0}, Duration: 1},
		}
	})
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	e.commitPinned(tt)
	ind := &Individual{Timetable: tt}

	e.repair(testRNG(), ind)

	a := tt.At("b-1", 0, 0)
	b := tt.At("b-2", 0, 0)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.True(t, a.Pinned)
	assert.True(t, b.Pinned)
}

func TestRepairReportsUnplaceableSessions(t *testing.T) {
	e := newTestEngine(t, func(p *Problem) {
		// A single one-slot day cannot hold two subjects for the same batch.
		p.Geometry = models.WeekGeometry{Days: 1, SlotsPerDay: 1}
		p.Subjects = []models.Subject{
			{ID: "s-math", Code: "MATH", Name: "Mathematics", HoursPerWeek: 1, Category: models.SubjectTheory},
			{ID: "s-phy", Code: "PHY", Name: "Physics", HoursPerWeek: 1, Category: models.SubjectTheory},
		}
		p.Faculty = []models.Faculty{
			{ID: "f-1", Name: "Asha", SubjectIDs: []string{"s-math", "s-phy"}},
		}
		p.Batches = []models.Batch{
			{ID: "b-1", Name: "Grade 9A", StudentCount: 30, SubjectIDs: []string{"s-math", "s-phy"}},
		}
	})
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	ind := &Individual{Timetable: tt}

	unplaced := e.repair(testRNG(), ind)
	assert.Equal(t, 1, unplaced, "one of the two required sessions cannot fit")
	assert.Len(t, tt.Assignments(), 1)
}
