package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
	appErrors "github.com/noah-isme/sma-uctp-engine/pkg/errors"
)

// testProblem is the shared fixture: two batches over a 5x6 week, three
// subjects including one co-taught practical, four faculty, three rooms.
func testProblem() *Problem {
	return &Problem{
		Geometry: models.WeekGeometry{Days: 5, SlotsPerDay: 6},
		Subjects: []models.Subject{
			{ID: "s-math", Code: "MATH", Name: "Mathematics", HoursPerWeek: 3, Category: models.SubjectTheory},
			{ID: "s-phy", Code: "PHY", Name: "Physics", HoursPerWeek: 2, Category: models.SubjectTheory},
			{ID: "s-lab", Code: "LAB", Name: "Physics Lab", HoursPerWeek: 2, Category: models.SubjectPractical},
		},
		Faculty: []models.Faculty{
			{ID: "f-1", Name: "Asha", SubjectIDs: []string{"s-math", "s-phy"}},
			{ID: "f-2", Name: "Bela", SubjectIDs: []string{"s-math"}},
			{ID: "f-3", Name: "Chand", SubjectIDs: []string{"s-phy", "s-lab"}},
			{ID: "f-4", Name: "Dev", SubjectIDs: []string{"s-lab"}},
		},
		Rooms: []models.Room{
			{ID: "r-1", Name: "Hall A", Capacity: 40, Category: models.RoomLecture},
			{ID: "r-2", Name: "Hall B", Capacity: 60, Category: models.RoomLecture},
			{ID: "r-3", Name: "Lab 1", Capacity: 40, Category: models.RoomLab},
		},
		Batches: []models.Batch{
			{ID: "b-1", Name: "Grade 9A", StudentCount: 30, SubjectIDs: []string{"s-math", "s-phy", "s-lab"}},
			{ID: "b-2", Name: "Grade 9B", StudentCount: 30, SubjectIDs: []string{"s-math", "s-phy"}},
		},
		CandidateCount: 3,
	}
}

func newTestEngine(t *testing.T, mutate func(*Problem)) *Engine {
	t.Helper()
	p := testProblem()
	if mutate != nil {
		mutate(p)
	}
	e, err := New(p, Config{Seed: 1}, nil, nil)
	require.NoError(t, err)
	return e
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(7))
}

// place drops a fully specified assignment on the grid for test setups.
func place(t *testing.T, tt *models.Timetable, id, batchID, subjectID, roomID string, faculty []string, day, slot int) *models.ClassAssignment {
	t.Helper()
	a := &models.ClassAssignment{
		ID:         id,
		SubjectID:  subjectID,
		FacultyIDs: faculty,
		RoomID:     roomID,
		BatchID:    batchID,
		Day:        day,
		Slot:       slot,
	}
	require.True(t, tt.Place(a))
	return a
}

func TestNewRejectsUnknownSubjectReference(t *testing.T) {
	p := testProblem()
	p.Batches[0].SubjectIDs = append(p.Batches[0].SubjectIDs, "s-ghost")

	_, err := New(p, Config{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnknownReference.Code, appErrors.FromError(err).Code)
}

func TestNewRejectsUnknownFacultyInAllocation(t *testing.T) {
	p := testProblem()
	p.Allocations = []models.FacultyAllocation{
		{BatchID: "b-1", SubjectID: "s-math", FacultyIDs: []string{"f-ghost"}},
	}

	_, err := New(p, Config{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnknownReference.Code, appErrors.FromError(err).Code)
}

func TestNewRejectsInfeasibleHeadcount(t *testing.T) {
	p := testProblem()
	// Only f-3 remains qualified for the practical, which needs two faculty.
	p.Faculty[3].SubjectIDs = nil

	_, err := New(p, Config{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInfeasibleInput.Code, appErrors.FromError(err).Code)
}

func TestNewRejectsMissingGeometry(t *testing.T) {
	p := testProblem()
	p.Geometry = models.WeekGeometry{}

	_, err := New(p, Config{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 40, cfg.PopulationSize)
	assert.Equal(t, 120, cfg.Generations)
	assert.Equal(t, 2, cfg.ElitismCount)
	assert.Equal(t, 3, cfg.TournamentSize)
	assert.Equal(t, 50, cfg.MoveAttempts)
	assert.Equal(t, 100, cfg.RepairAttempts)
	assert.Less(t, cfg.StagnationNudge, cfg.StagnationExit)
}
