package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-uctp-engine/internal/advisory"
	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

// advisorStub implements advisory.Service with overridable behavior per call.
type advisorStub struct {
	phases       func(ctx context.Context, summary string) ([]advisory.PhaseProposal, error)
	intervention func(ctx context.Context, summary string) (*advisory.Intervention, error)
	tune         func(ctx context.Context, base models.ConstraintWeights, feedback []float64) (models.ConstraintWeights, error)
}

func (s *advisorStub) ProposePhaseStrategy(ctx context.Context, summary string) ([]advisory.PhaseProposal, error) {
	if s.phases != nil {
		return s.phases(ctx, summary)
	}
	return nil, nil
}

func (s *advisorStub) ProposeIntervention(ctx context.Context, summary string) (*advisory.Intervention, error) {
	if s.intervention != nil {
		return s.intervention(ctx, summary)
	}
	return nil, nil
}

func (s *advisorStub) TuneWeights(ctx context.Context, base models.ConstraintWeights, feedback []float64) (models.ConstraintWeights, error) {
	if s.tune != nil {
		return s.tune(ctx, base, feedback)
	}
	return base, nil
}

// sinkStub records engine progress events behind a mutex.
type sinkStub struct {
	mu         sync.Mutex
	phases     []string
	bestScores []float64
	advisory   map[string]bool
	shortfalls int
}

func newSinkStub() *sinkStub {
	return &sinkStub{advisory: make(map[string]bool)}
}

func (s *sinkStub) ObserveGeneration(phase string, generation int, bestScore float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases = append(s.phases, phase)
	s.bestScores = append(s.bestScores, bestScore)
}

func (s *sinkStub) RecordAdvisory(kind string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advisory[kind] = ok
}

func (s *sinkStub) RecordRepairShortfall(sessions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortfalls += sessions
}

func smallConfig() Config {
	return Config{
		PopulationSize: 8,
		Generations:    6,
		ElitismCount:   2,
		TournamentSize: 3,
		Workers:        2,
		Seed:           42,
	}
}

func newRunEngine(t *testing.T, advisor advisory.Service, cfg Config) *Engine {
	t.Helper()
	e, err := New(testProblem(), cfg, advisor, nil)
	require.NoError(t, err)
	return e
}

func TestRunReturnsDistinctSortedCandidates(t *testing.T) {
	e := newRunEngine(t, nil, smallConfig())

	candidates, err := e.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	require.LessOrEqual(t, len(candidates), 3)

	seen := make(map[string]bool)
	for i, c := range candidates {
		fp := c.Timetable.Fingerprint()
		assert.False(t, seen[fp], "candidates must be pairwise distinct")
		seen[fp] = true
		if i > 0 {
			assert.LessOrEqual(t, c.Metrics.Score, candidates[i-1].Metrics.Score, "candidates must come best first")
		}
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	e := newRunEngine(t, nil, smallConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	candidates, err := e.Run(ctx)
	require.NoError(t, err, "cancellation returns best so far, not an error")
	assert.NotEmpty(t, candidates)
}

func TestRunFollowsAdvisorPhasePlan(t *testing.T) {
	advisor := &advisorStub{
		phases: func(_ context.Context, summary string) ([]advisory.PhaseProposal, error) {
			assert.Contains(t, summary, "batches=2")
			return []advisory.PhaseProposal{
				{Name: "advised-only", Generations: 3, Swap: 1},
			}, nil
		},
	}
	e := newRunEngine(t, advisor, smallConfig())
	sink := newSinkStub()
	e.SetMetricsSink(sink)

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, sink.phases)
	for _, phase := range sink.phases {
		assert.Equal(t, "advised-only", phase)
	}
	assert.True(t, sink.advisory["phase_strategy"])
}

func TestRunFallsBackWhenAdvisorFails(t *testing.T) {
	advisor := &advisorStub{
		phases: func(context.Context, string) ([]advisory.PhaseProposal, error) {
			return nil, assert.AnError
		},
	}
	e := newRunEngine(t, advisor, smallConfig())
	sink := newSinkStub()
	e.SetMetricsSink(sink)

	candidates, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, candidates)
	assert.False(t, sink.advisory["phase_strategy"])
	assert.Contains(t, sink.phases, "exploration", "default plan kicks in")
}

func TestRunBestScoreNeverRegressesWithinPhase(t *testing.T) {
	advisor := &advisorStub{
		phases: func(context.Context, string) ([]advisory.PhaseProposal, error) {
			return []advisory.PhaseProposal{
				{Name: "single", Generations: 8, Swap: 0.4, Move: 0.3, Crossover: 0.3},
			}, nil
		},
	}
	cfg := smallConfig()
	cfg.NearPerfectScore = 1001 // unreachable, keep the loop running
	e := newRunEngine(t, advisor, cfg)
	sink := newSinkStub()
	e.SetMetricsSink(sink)

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, sink.bestScores)
	for i := 1; i < len(sink.bestScores); i++ {
		assert.GreaterOrEqual(t, sink.bestScores[i], sink.bestScores[i-1],
			"elitism must carry the best candidate forward")
	}
}

func TestApplyInterventionSwapsProposedSessions(t *testing.T) {
	var proposed advisory.Intervention
	advisor := &advisorStub{
		intervention: func(_ context.Context, summary string) (*advisory.Intervention, error) {
			assert.Contains(t, summary, "score=")
			return &proposed, nil
		},
	}
	e := newRunEngine(t, advisor, smallConfig())

	base := e.newIndividual(testRNG(), nil)
	e.evaluate(base)
	movable := movableAssignments(base.Timetable)
	require.GreaterOrEqual(t, len(movable), 2)
	proposed = advisory.Intervention{SessionA: movable[0].ID, SessionB: movable[1].ID}

	original := base.Clone()
	pop := []*Individual{base, base.Clone()}

	require.True(t, e.applyIntervention(context.Background(), pop))
	assert.Equal(t, original.Timetable.Fingerprint(), pop[0].Timetable.Fingerprint(), "the best candidate itself is untouched")
	assert.Equal(t, sessionKeys(original.Timetable), sessionKeys(pop[1].Timetable), "mutated clone keeps the session multiset")
}

func TestApplyInterventionRejectsUnknownSession(t *testing.T) {
	advisor := &advisorStub{
		intervention: func(context.Context, string) (*advisory.Intervention, error) {
			return &advisory.Intervention{SessionA: "ghost-1", SessionB: "ghost-2"}, nil
		},
	}
	e := newRunEngine(t, advisor, smallConfig())

	base := e.newIndividual(testRNG(), nil)
	e.evaluate(base)
	pop := []*Individual{base, base.Clone()}

	assert.False(t, e.applyIntervention(context.Background(), pop))
}

func TestSelectCandidatesDeduplicates(t *testing.T) {
	e := newTestEngine(t, nil)
	rng := testRNG()
	base := e.newIndividual(rng, nil)
	e.evaluate(base)
	other := e.newIndividual(rng, nil)
	e.evaluate(other)

	pop := []*Individual{base, base.Clone(), other, other.Clone()}
	sortByScore(pop)

	candidates := e.selectCandidates(pop)
	assert.Len(t, candidates, 2, "duplicates collapse by fingerprint")
}
