// Package engine implements the timetable optimization core: a multi-phase
// genetic search over candidate timetables with conflict repair and an
// optional external advisor.
package engine

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-uctp-engine/internal/advisory"
	"github.com/noah-isme/sma-uctp-engine/internal/models"
	appErrors "github.com/noah-isme/sma-uctp-engine/pkg/errors"
)

// Problem is the immutable snapshot the caller hands to the engine. The engine
// never mutates it and never writes anything back to storage.
type Problem struct {
	Batches      []models.Batch
	Subjects     []models.Subject
	Faculty      []models.Faculty
	Rooms        []models.Room
	Pinned       []models.PinnedAssignment
	Availability []models.FacultyAvailability
	Allocations  []models.FacultyAllocation
	Weights      models.ConstraintWeights
	Geometry     models.WeekGeometry

	// CandidateCount caps how many distinct candidates Run returns.
	CandidateCount int

	// Baseline, when set, seeds individual 0 of the initial population to
	// support interactive re-optimization.
	Baseline *models.Timetable
}

// Config tunes the search. Zero values fall back to sane defaults.
type Config struct {
	PopulationSize int
	Generations    int
	ElitismCount   int
	TournamentSize int
	MutationRate   float64
	Workers        int

	// NearPerfectScore short-circuits a phase once the best candidate
	// reaches it.
	NearPerfectScore float64

	// StagnationExit ends a phase after that many generations without
	// improvement; StagnationNudge triggers the one advisory intervention a
	// phase may use.
	StagnationExit  int
	StagnationNudge int

	// MoveAttempts bounds the move mutation's random draws, RepairAttempts
	// the repair engine's per-session draws.
	MoveAttempts   int
	RepairAttempts int

	// Annealing schedule: geometric cooling from StartTemp down to FloorTemp.
	AnnealStartTemp float64
	AnnealFloorTemp float64
	AnnealCooling   float64

	// AdvisoryTimeout bounds every advisory call.
	AdvisoryTimeout time.Duration

	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.PopulationSize <= 0 {
		c.PopulationSize = 40
	}
	if c.Generations <= 0 {
		c.Generations = 120
	}
	if c.ElitismCount <= 0 {
		c.ElitismCount = 2
	}
	if c.ElitismCount >= c.PopulationSize {
		c.ElitismCount = c.PopulationSize - 1
	}
	if c.TournamentSize <= 0 {
		c.TournamentSize = 3
	}
	if c.MutationRate <= 0 || c.MutationRate > 1 {
		c.MutationRate = 0.25
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.NearPerfectScore <= 0 {
		c.NearPerfectScore = 995
	}
	if c.StagnationExit <= 0 {
		c.StagnationExit = 25
	}
	if c.StagnationNudge <= 0 || c.StagnationNudge >= c.StagnationExit {
		c.StagnationNudge = c.StagnationExit / 2
	}
	if c.MoveAttempts <= 0 {
		c.MoveAttempts = 50
	}
	if c.RepairAttempts <= 0 {
		c.RepairAttempts = 100
	}
	if c.AnnealStartTemp <= 0 {
		c.AnnealStartTemp = 40
	}
	if c.AnnealFloorTemp <= 0 {
		c.AnnealFloorTemp = 0.5
	}
	if c.AnnealCooling <= 0 || c.AnnealCooling >= 1 {
		c.AnnealCooling = 0.85
	}
	if c.AdvisoryTimeout <= 0 {
		c.AdvisoryTimeout = 15 * time.Second
	}
	return c
}

// Individual is one candidate solution with its last computed metrics.
type Individual struct {
	Timetable *models.Timetable
	Metrics   models.TimetableMetrics
}

// Clone deep-copies the individual.
func (ind *Individual) Clone() *Individual {
	return &Individual{Timetable: ind.Timetable.Clone(), Metrics: ind.Metrics}
}

// snapshot indexes the problem for fast lookups during the search.
type snapshot struct {
	geometry     models.WeekGeometry
	batches      map[string]models.Batch
	subjects     map[string]models.Subject
	faculty      map[string]models.Faculty
	rooms        map[string]models.Room
	availability map[string]models.FacultyAvailability
	allocations  map[string][]string // batchID+"/"+subjectID -> preferred faculty
	qualified    map[string][]string // subjectID -> qualified faculty, input order
	batchIDs     []string
	roomIDs      []string
	facultyIDs   []string
}

func allocationKey(batchID, subjectID string) string {
	return batchID + "/" + subjectID
}

// newSnapshot validates every cross-reference in the problem and fails fast on
// unknown ids or subjects nobody can teach.
func newSnapshot(p *Problem) (*snapshot, error) {
	if p.Geometry.Days <= 0 || p.Geometry.SlotsPerDay <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week geometry must define days and slots per day")
	}
	if len(p.Batches) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one batch is required")
	}

	s := &snapshot{
		geometry:     p.Geometry,
		batches:      make(map[string]models.Batch, len(p.Batches)),
		subjects:     make(map[string]models.Subject, len(p.Subjects)),
		faculty:      make(map[string]models.Faculty, len(p.Faculty)),
		rooms:        make(map[string]models.Room, len(p.Rooms)),
		availability: make(map[string]models.FacultyAvailability, len(p.Availability)),
		allocations:  make(map[string][]string, len(p.Allocations)),
		qualified:    make(map[string][]string),
	}

	for _, subject := range p.Subjects {
		s.subjects[subject.ID] = subject
	}
	for _, f := range p.Faculty {
		s.faculty[f.ID] = f
		s.facultyIDs = append(s.facultyIDs, f.ID)
		for _, subjectID := range f.SubjectIDs {
			if _, ok := s.subjects[subjectID]; !ok {
				return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("faculty %s references unknown subject %s", f.ID, subjectID))
			}
			s.qualified[subjectID] = append(s.qualified[subjectID], f.ID)
		}
	}
	for _, room := range p.Rooms {
		s.rooms[room.ID] = room
		s.roomIDs = append(s.roomIDs, room.ID)
	}
	for _, batch := range p.Batches {
		s.batches[batch.ID] = batch
		s.batchIDs = append(s.batchIDs, batch.ID)
		for _, subjectID := range batch.SubjectIDs {
			subject, ok := s.subjects[subjectID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("batch %s requires unknown subject %s", batch.ID, subjectID))
			}
			if len(s.qualified[subjectID]) < subject.Category.FacultyHeadcount() {
				return nil, appErrors.Clone(appErrors.ErrInfeasibleInput, fmt.Sprintf("subject %s has no sufficient qualified faculty", subjectID))
			}
		}
		for _, roomID := range batch.AllowedRoomIDs {
			if _, ok := s.rooms[roomID]; !ok {
				return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("batch %s restricts to unknown room %s", batch.ID, roomID))
			}
		}
	}

	for _, av := range p.Availability {
		if _, ok := s.faculty[av.FacultyID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("availability constraint references unknown faculty %s", av.FacultyID))
		}
		s.availability[av.FacultyID] = av
	}

	for _, alloc := range p.Allocations {
		if _, ok := s.batches[alloc.BatchID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("allocation references unknown batch %s", alloc.BatchID))
		}
		if _, ok := s.subjects[alloc.SubjectID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("allocation references unknown subject %s", alloc.SubjectID))
		}
		for _, facultyID := range alloc.FacultyIDs {
			if _, ok := s.faculty[facultyID]; !ok {
				return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("allocation references unknown faculty %s", facultyID))
			}
		}
		s.allocations[allocationKey(alloc.BatchID, alloc.SubjectID)] = alloc.FacultyIDs
	}

	for _, pin := range p.Pinned {
		if _, ok := s.batches[pin.BatchID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("pinned assignment %s references unknown batch %s", pin.ID, pin.BatchID))
		}
		if _, ok := s.subjects[pin.SubjectID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("pinned assignment %s references unknown subject %s", pin.ID, pin.SubjectID))
		}
		if _, ok := s.rooms[pin.RoomID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("pinned assignment %s references unknown room %s", pin.ID, pin.RoomID))
		}
		for _, facultyID := range pin.FacultyIDs {
			if _, ok := s.faculty[facultyID]; !ok {
				return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("pinned assignment %s references unknown faculty %s", pin.ID, facultyID))
			}
		}
	}

	return s, nil
}

// Engine runs the optimization for a single problem snapshot.
type Engine struct {
	cfg     Config
	problem *Problem
	snap    *snapshot
	weights models.ConstraintWeights
	advisor advisory.Service
	logger  *zap.Logger
	sink    MetricsSink
	rng     *rand.Rand
}

// New builds an engine for the problem. The advisor may be nil; the engine
// then runs fully self-contained.
func New(problem *Problem, cfg Config, advisor advisory.Service, logger *zap.Logger) (*Engine, error) {
	snap, err := newSnapshot(problem)
	if err != nil {
		return nil, err
	}
	if advisor == nil {
		advisor = advisory.Nop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	weights := problem.Weights
	if weights == (models.ConstraintWeights{}) {
		weights = models.DefaultConstraintWeights
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		cfg:     cfg,
		problem: problem,
		snap:    snap,
		weights: weights,
		advisor: advisor,
		logger:  logger,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// SetMetricsSink attaches an optional instrumentation sink.
func (e *Engine) SetMetricsSink(sink MetricsSink) {
	e.sink = sink
}

// MetricsSink receives engine progress events. All methods must be cheap and
// non-blocking.
type MetricsSink interface {
	ObserveGeneration(phase string, generation int, bestScore float64)
	RecordAdvisory(kind string, ok bool)
	RecordRepairShortfall(sessions int)
}
