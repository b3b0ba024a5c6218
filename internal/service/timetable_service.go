// Package service orchestrates snapshot loading, engine runs, and proposal
// lifecycle for the HTTP layer.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-uctp-engine/internal/advisory"
	"github.com/noah-isme/sma-uctp-engine/internal/dto"
	"github.com/noah-isme/sma-uctp-engine/internal/engine"
	"github.com/noah-isme/sma-uctp-engine/internal/models"
	"github.com/noah-isme/sma-uctp-engine/pkg/config"
	appErrors "github.com/noah-isme/sma-uctp-engine/pkg/errors"
)

type snapshotReader interface {
	ListBatches(ctx context.Context, ids []string) ([]models.Batch, error)
	ListSubjects(ctx context.Context, ids []string) ([]models.Subject, error)
	ListFaculty(ctx context.Context) ([]models.Faculty, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListPinned(ctx context.Context, batchIDs []string) ([]models.PinnedAssignment, error)
	ListAvailability(ctx context.Context) ([]models.FacultyAvailability, error)
	ListAllocations(ctx context.Context, batchIDs []string) ([]models.FacultyAllocation, error)
}

type proposalMirror interface {
	Save(ctx context.Context, proposal *dto.GenerateTimetableResponse, ttl time.Duration) error
	Get(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error)
	Delete(ctx context.Context, id string) error
}

// TimetableService runs the optimization engine against stored scheduling
// data and keeps generated proposals for follow-up calls.
type TimetableService struct {
	snapshots snapshotReader
	advisor   advisory.Service
	mirror    proposalMirror
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	store     *proposalStore
	cfg       config.EngineConfig
}

// NewTimetableService wires the service. advisor, mirror, and metrics may be
// nil.
func NewTimetableService(
	snapshots snapshotReader,
	advisor advisory.Service,
	mirror proposalMirror,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.EngineConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if advisor == nil {
		advisor = advisory.Nop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	return &TimetableService{
		snapshots: snapshots,
		advisor:   advisor,
		mirror:    mirror,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newProposalStore(cfg.ProposalTTL),
		cfg:       cfg,
	}
}

// Generate loads a snapshot for the requested batches, runs the engine, and
// stores the resulting proposal.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	problem, err := s.loadProblem(ctx, req)
	if err != nil {
		return nil, err
	}

	cfg := engine.Config{
		PopulationSize:  s.cfg.PopulationSize,
		Generations:     s.cfg.Generations,
		ElitismCount:    s.cfg.ElitismCount,
		TournamentSize:  s.cfg.TournamentSize,
		MutationRate:    s.cfg.MutationRate,
		Workers:         s.cfg.Workers,
		StagnationExit:  s.cfg.StagnationExit,
		StagnationNudge: s.cfg.StagnationNudge,
		Seed:            req.Seed,
	}
	if req.PopulationSize > 0 {
		cfg.PopulationSize = req.PopulationSize
	}
	if req.Generations > 0 {
		cfg.Generations = req.Generations
	}

	eng, err := engine.New(problem, cfg, s.advisor, s.logger)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		eng.SetMetricsSink(s.metrics)
	}

	started := time.Now()
	candidates, err := eng.Run(ctx)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveEngineRun(time.Since(started))
	}

	resp := &dto.GenerateTimetableResponse{
		ProposalID:  uuid.NewString(),
		Candidates:  make([]dto.TimetableCandidate, 0, len(candidates)),
		RequestedAt: time.Now().UTC(),
	}
	for rank, c := range candidates {
		assignments := make([]models.ClassAssignment, 0, len(c.Timetable.Assignments()))
		for _, a := range c.Timetable.Assignments() {
			assignments = append(assignments, *a.Clone())
		}
		resp.Candidates = append(resp.Candidates, dto.TimetableCandidate{
			Rank:        rank,
			Metrics:     c.Metrics,
			Assignments: assignments,
		})
	}

	s.store.Save(storedProposal{
		Response:    resp,
		BatchIDs:    req.BatchIDs,
		Geometry:    problem.Geometry,
		RequestedAt: resp.RequestedAt,
	})
	if s.mirror != nil {
		if err := s.mirror.Save(ctx, resp, s.cfg.ProposalTTL); err != nil {
			s.logger.Warn("failed to mirror proposal to cache", zap.Error(err))
		}
	}

	s.logger.Info("timetable proposal generated",
		zap.String("proposal_id", resp.ProposalID),
		zap.Int("candidates", len(resp.Candidates)),
		zap.Duration("took", time.Since(started)))
	return resp, nil
}

// GetProposal returns a stored proposal, consulting the cache mirror when the
// in-memory store misses.
func (s *TimetableService) GetProposal(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error) {
	if proposal, ok := s.store.Get(id); ok {
		return proposal.Response, nil
	}
	if s.mirror != nil {
		cached, err := s.mirror.Get(ctx, id)
		if err != nil {
			s.logger.Warn("proposal cache lookup failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
}

// ListProposals summarises the proposals still held in memory, newest first.
func (s *TimetableService) ListProposals(_ context.Context) ([]dto.ProposalSummary, error) {
	proposals := s.store.List()
	summaries := make([]dto.ProposalSummary, 0, len(proposals))
	for _, p := range proposals {
		best := 0.0
		if len(p.Response.Candidates) > 0 {
			best = p.Response.Candidates[0].Metrics.Score
		}
		summaries = append(summaries, dto.ProposalSummary{
			ProposalID:  p.Response.ProposalID,
			BatchIDs:    p.BatchIDs,
			BestScore:   best,
			Candidates:  len(p.Response.Candidates),
			RequestedAt: p.RequestedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].RequestedAt.After(summaries[j].RequestedAt)
	})
	return summaries, nil
}

// DeleteProposal drops a proposal from the store and the cache mirror.
func (s *TimetableService) DeleteProposal(ctx context.Context, id string) error {
	if _, ok := s.store.Get(id); !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	s.store.Delete(id)
	if s.mirror != nil {
		if err := s.mirror.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to drop cached proposal", zap.Error(err))
		}
	}
	return nil
}

// loadProblem assembles the engine input from storage and the request.
func (s *TimetableService) loadProblem(ctx context.Context, req dto.GenerateTimetableRequest) (*engine.Problem, error) {
	batches, err := s.snapshots.ListBatches(ctx, req.BatchIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batches")
	}
	if len(batches) != len(req.BatchIDs) {
		return nil, appErrors.Clone(appErrors.ErrUnknownReference, fmt.Sprintf("requested %d batches, found %d", len(req.BatchIDs), len(batches)))
	}

	subjectIDs := make([]string, 0)
	seen := make(map[string]bool)
	for _, batch := range batches {
		for _, id := range batch.SubjectIDs {
			if !seen[id] {
				seen[id] = true
				subjectIDs = append(subjectIDs, id)
			}
		}
	}

	subjects, err := s.snapshots.ListSubjects(ctx, subjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	faculty, err := s.snapshots.ListFaculty(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	rooms, err := s.snapshots.ListRooms(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	pinned, err := s.snapshots.ListPinned(ctx, req.BatchIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pinned assignments")
	}
	availability, err := s.snapshots.ListAvailability(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty availability")
	}
	allocations, err := s.snapshots.ListAllocations(ctx, req.BatchIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty allocations")
	}

	weights := models.DefaultConstraintWeights
	if req.Weights != nil {
		weights = models.ConstraintWeights{
			StudentGaps:          req.Weights.StudentGaps,
			FacultyGaps:          req.Weights.FacultyGaps,
			FacultyWorkload:      req.Weights.FacultyWorkload,
			PreferenceViolations: req.Weights.PreferenceViolations,
		}
	}

	candidateCount := req.CandidateCount
	if candidateCount <= 0 {
		candidateCount = s.cfg.CandidateCount
	}

	geometry := models.WeekGeometry{Days: req.Days, SlotsPerDay: req.SlotsPerDay}
	problem := &engine.Problem{
		Batches:        batches,
		Subjects:       subjects,
		Faculty:        faculty,
		Rooms:          rooms,
		Pinned:         pinned,
		Availability:   availability,
		Allocations:    allocations,
		Weights:        weights,
		Geometry:       geometry,
		CandidateCount: candidateCount,
	}

	if req.BaselineProposalID != "" {
		baseline, err := s.baselineTimetable(req, geometry, batches)
		if err != nil {
			return nil, err
		}
		problem.Baseline = baseline
	}
	return problem, nil
}

// baselineTimetable rebuilds a timetable from a stored proposal candidate so a
// new run can start from it.
func (s *TimetableService) baselineTimetable(req dto.GenerateTimetableRequest, geometry models.WeekGeometry, batches []models.Batch) (*models.Timetable, error) {
	proposal, ok := s.store.Get(req.BaselineProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "baseline proposal not found or expired")
	}
	if proposal.Geometry != geometry {
		return nil, appErrors.Clone(appErrors.ErrValidation, "baseline proposal uses a different week geometry")
	}
	if req.BaselineCandidate >= len(proposal.Response.Candidates) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "baseline candidate index out of range")
	}

	batchIDs := make([]string, 0, len(batches))
	for _, b := range batches {
		batchIDs = append(batchIDs, b.ID)
	}
	t := models.NewTimetable(geometry, batchIDs)
	for _, a := range proposal.Response.Candidates[req.BaselineCandidate].Assignments {
		if !t.Place(a.Clone()) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "baseline proposal does not fit the requested batches")
		}
	}
	return t, nil
}

// storedProposal is the in-memory record of a generated proposal.
type storedProposal struct {
	Response    *dto.GenerateTimetableResponse
	BatchIDs    []string
	Geometry    models.WeekGeometry
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]storedProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]storedProposal),
	}
}

func (s *proposalStore) Save(proposal storedProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.Response.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (storedProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return storedProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return storedProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) List() []storedProposal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storedProposal, 0, len(s.items))
	for _, p := range s.items {
		if time.Since(p.RequestedAt) > s.ttl {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
