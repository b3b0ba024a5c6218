package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

func TestBatchFree(t *testing.T) {
	e := newTestEngine(t, nil)
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)

	assert.True(t, batchFree(tt, "b-1", 0, 0))

	place(t, tt, "a1", "b-1", "s-math", "r-1", []string{"f-1"}, 0, 0)
	assert.False(t, batchFree(tt, "b-1", 0, 0))
	assert.True(t, batchFree(tt, "b-2", 0, 0))

	assert.False(t, batchFree(tt, "b-1", 5, 0), "day out of range")
	assert.False(t, batchFree(tt, "b-1", 0, 6), "slot out of range")
}

func TestFacultyFreeSeesEveryBatch(t *testing.T) {
	e := newTestEngine(t, nil)
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	a := place(t, tt, "a1", "b-1", "s-math", "r-1", []string{"f-1"}, 0, 0)

	assert.False(t, e.facultyFree(tt, "f-1", 0, 0, nil), "teaching b-1 blocks the slot for b-2 too")
	assert.True(t, e.facultyFree(tt, "f-1", 0, 1, nil))
	assert.True(t, e.facultyFree(tt, "f-2", 0, 0, nil))
	assert.True(t, e.facultyFree(tt, "f-1", 0, 0, a), "excluded assignment must not count")
}

func TestFacultyFreeHonorsAvailability(t *testing.T) {
	e := newTestEngine(t, func(p *Problem) {
		p.Availability = []models.FacultyAvailability{
			{FacultyID: "f-2", AllowedSlots: map[int][]int{0: {0, 1}}},
		}
	})
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)

	assert.True(t, e.facultyFree(tt, "f-2", 0, 1, nil))
	assert.False(t, e.facultyFree(tt, "f-2", 0, 2, nil))
	assert.False(t, e.facultyFree(tt, "f-2", 1, 0, nil), "a day without an entry is fully blocked")
	assert.True(t, e.facultyFree(tt, "f-1", 1, 0, nil), "unconstrained faculty stay free")
}

func TestRoomFreeChecksSuitability(t *testing.T) {
	e := newTestEngine(t, func(p *Problem) {
		p.Rooms = append(p.Rooms, models.Room{ID: "r-small", Name: "Annex", Capacity: 10, Category: models.RoomLecture})
		p.Batches[1].AllowedRoomIDs = []string{"r-2"}
	})
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)

	assert.True(t, e.roomFree(tt, "r-1", 0, 0, "b-1", "s-math", nil))
	assert.False(t, e.roomFree(tt, "r-1", 0, 0, "b-1", "s-lab", nil), "practical needs a lab room")
	assert.True(t, e.roomFree(tt, "r-3", 0, 0, "b-1", "s-lab", nil))
	assert.False(t, e.roomFree(tt, "r-small", 0, 0, "b-1", "s-math", nil), "capacity below batch size")
	assert.False(t, e.roomFree(tt, "r-1", 0, 0, "b-2", "s-math", nil), "batch restricted to r-2")
	assert.False(t, e.roomFree(tt, "r-ghost", 0, 0, "b-1", "s-math", nil))
}

func TestRoomFreeDetectsOccupancyAcrossBatches(t *testing.T) {
	e := newTestEngine(t, nil)
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	a := place(t, tt, "a1", "b-1", "s-math", "r-1", []string{"f-1"}, 2, 3)

	assert.False(t, e.roomFree(tt, "r-1", 2, 3, "b-2", "s-math", nil))
	assert.True(t, e.roomFree(tt, "r-2", 2, 3, "b-2", "s-math", nil))
	assert.True(t, e.roomFree(tt, "r-1", 2, 3, "b-2", "s-math", a), "excluded assignment frees its room")
}

func TestPlacementFree(t *testing.T) {
	e := newTestEngine(t, nil)
	tt := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	place(t, tt, "a1", "b-1", "s-math", "r-1", []string{"f-1"}, 0, 0)

	conflicting := &models.ClassAssignment{
		ID: "a2", SubjectID: "s-math", FacultyIDs: []string{"f-1"},
		RoomID: "r-2", BatchID: "b-2", Day: 0, Slot: 0,
	}
	assert.False(t, e.placementFree(tt, conflicting), "faculty already teaching")

	conflicting.FacultyIDs = []string{"f-2"}
	assert.True(t, e.placementFree(tt, conflicting))

	conflicting.RoomID = "r-1"
	assert.False(t, e.placementFree(tt, conflicting), "room already taken")
}
