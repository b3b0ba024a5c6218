package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/alitto/pond"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

// Run executes the full multi-phase search and returns up to CandidateCount
// pairwise-distinct candidates, best first. Cancellation via ctx is
// cooperative: the engine checks between generations and returns the best
// candidates found so far without error.
func (e *Engine) Run(ctx context.Context) ([]*Individual, error) {
	phases := e.planPhases(ctx)

	pool := pond.New(e.cfg.Workers, e.cfg.PopulationSize)
	defer pool.StopAndWait()

	pop := e.initialPopulation(e.rng)
	e.evaluateAll(pool, pop)

	var feedback []float64
	done := false

	for phaseIdx, phase := range phases {
		if done {
			break
		}

		stagnation := 0
		interventionUsed := false
		phaseBest := -1.0

		for gen := 0; gen < phase.Generations; gen++ {
			select {
			case <-ctx.Done():
				e.logger.Info("optimization cancelled, returning best so far",
					zap.String("phase", phase.Name), zap.Int("generation", gen))
				sortByScore(pop)
				return e.selectCandidates(pop), nil
			default:
			}

			sortByScore(pop)
			best := pop[0]
			e.observeGeneration(phase.Name, gen, best.Metrics.Score)

			if best.Metrics.Score >= e.cfg.NearPerfectScore {
				e.logger.Info("near-perfect candidate reached",
					zap.String("phase", phase.Name),
					zap.Float64("score", best.Metrics.Score))
				phaseBest = best.Metrics.Score
				done = true
				break
			}

			if best.Metrics.Score > phaseBest {
				phaseBest = best.Metrics.Score
				stagnation = 0
			} else {
				stagnation++
			}
			if stagnation >= e.cfg.StagnationExit {
				e.logger.Info("phase exhausted by stagnation",
					zap.String("phase", phase.Name), zap.Int("generation", gen))
				break
			}
			if stagnation >= e.cfg.StagnationNudge && !interventionUsed {
				interventionUsed = true
				if e.applyIntervention(ctx, pop) {
					stagnation = 0
					sortByScore(pop)
				}
			}

			pop = e.nextGeneration(pool, pop, phase.Weights)
		}

		feedback = append(feedback, phaseBest)
		if !done && phaseIdx < len(phases)-1 {
			e.tuneWeights(ctx, feedback)
			e.evaluateAll(pool, pop)
		}
	}

	sortByScore(pop)
	return e.selectCandidates(pop), nil
}

// nextGeneration carries the elites forward unchanged and fills the rest of
// the population with offspring produced on the worker pool. Every worker gets
// its own seeded random source; the parent population is read-only during the
// generation.
func (e *Engine) nextGeneration(pool *pond.WorkerPool, pop []*Individual, weights OperatorWeights) []*Individual {
	next := make([]*Individual, len(pop))
	for i := 0; i < e.cfg.ElitismCount; i++ {
		next[i] = pop[i].Clone()
	}

	group := pool.Group()
	for i := e.cfg.ElitismCount; i < len(pop); i++ {
		i := i
		seed := e.rng.Int63()
		group.Submit(func() {
			rng := rand.New(rand.NewSource(seed))
			next[i] = e.spawnOffspring(rng, pop, weights)
		})
	}
	group.Wait()
	return next
}

// spawnOffspring selects parents, applies one sampled operator, repairs the
// result, and scores it.
func (e *Engine) spawnOffspring(rng *rand.Rand, pop []*Individual, weights OperatorWeights) *Individual {
	h := pickHeuristic(rng, weights)

	var child *Individual
	switch h {
	case heuristicCrossover:
		a := e.tournament(rng, pop)
		b := e.tournament(rng, pop)
		child = e.crossover(rng, a, b)
		if rng.Float64() < e.cfg.MutationRate {
			child = e.swapMutation(rng, child)
		}
	case heuristicMove:
		child = e.moveMutation(rng, e.tournament(rng, pop))
	case heuristicAnneal:
		child = e.anneal(rng, e.tournament(rng, pop))
	default:
		child = e.swapMutation(rng, e.tournament(rng, pop))
	}

	if unplaced := e.repair(rng, child); unplaced > 0 && e.sink != nil {
		e.sink.RecordRepairShortfall(unplaced)
	}
	e.evaluate(child)
	return child
}

// evaluateAll scores the whole population on the worker pool.
func (e *Engine) evaluateAll(pool *pond.WorkerPool, pop []*Individual) {
	group := pool.Group()
	for _, ind := range pop {
		ind := ind
		group.Submit(func() {
			e.evaluate(ind)
		})
	}
	group.Wait()
}

// planPhases asks the advisor for a phase strategy and falls back to the
// default three-phase plan on any failure.
func (e *Engine) planPhases(ctx context.Context) []Phase {
	actx, cancel := context.WithTimeout(ctx, e.cfg.AdvisoryTimeout)
	defer cancel()

	proposals, err := e.advisor.ProposePhaseStrategy(actx, e.problemSummary())
	if err != nil {
		e.logger.Warn("phase strategy advice unavailable", zap.Error(err))
		e.recordAdvisory("phase_strategy", false)
		return defaultPhases(e.cfg.Generations)
	}
	if phases := phasesFromProposals(proposals); phases != nil {
		e.recordAdvisory("phase_strategy", true)
		return phases
	}
	e.recordAdvisory("phase_strategy", false)
	return defaultPhases(e.cfg.Generations)
}

// tuneWeights asks the advisor to adjust the constraint weights between
// phases. Failures keep the current weights.
func (e *Engine) tuneWeights(ctx context.Context, feedback []float64) {
	actx, cancel := context.WithTimeout(ctx, e.cfg.AdvisoryTimeout)
	defer cancel()

	tuned, err := e.advisor.TuneWeights(actx, e.weights, feedback)
	if err != nil {
		e.logger.Warn("weight tuning advice unavailable", zap.Error(err))
		e.recordAdvisory("tune_weights", false)
		return
	}
	e.recordAdvisory("tune_weights", true)
	e.weights = tuned
}

// applyIntervention asks the advisor for a targeted swap on the best
// candidate. On success the modified candidate replaces the weakest
// individual. Any failure, unknown session id, or pinned target is a no-op.
func (e *Engine) applyIntervention(ctx context.Context, pop []*Individual) bool {
	best := pop[0]

	actx, cancel := context.WithTimeout(ctx, e.cfg.AdvisoryTimeout)
	defer cancel()

	iv, err := e.advisor.ProposeIntervention(actx, e.candidateSummary(best))
	if err != nil || iv == nil {
		if err != nil {
			e.logger.Warn("intervention advice unavailable", zap.Error(err))
		}
		e.recordAdvisory("intervention", false)
		return false
	}

	mutated := best.Clone()
	a := findAssignment(mutated.Timetable, iv.SessionA)
	b := findAssignment(mutated.Timetable, iv.SessionB)
	if a == nil || b == nil || a.Pinned || b.Pinned {
		e.recordAdvisory("intervention", false)
		return false
	}

	t := mutated.Timetable
	t.Remove(a.BatchID, a.Day, a.Slot)
	t.Remove(b.BatchID, b.Day, b.Slot)
	a.Day, a.Slot, b.Day, b.Slot = b.Day, b.Slot, a.Day, a.Slot
	if !t.Place(a) || !t.Place(b) {
		e.recordAdvisory("intervention", false)
		return false
	}

	if unplaced := e.repair(e.rng, mutated); unplaced > 0 && e.sink != nil {
		e.sink.RecordRepairShortfall(unplaced)
	}
	e.evaluate(mutated)

	pop[len(pop)-1] = mutated
	e.recordAdvisory("intervention", true)
	e.logger.Info("advisory intervention applied",
		zap.String("session_a", iv.SessionA),
		zap.String("session_b", iv.SessionB),
		zap.Float64("score", mutated.Metrics.Score))
	return true
}

// selectCandidates returns up to CandidateCount pairwise-distinct individuals
// from the sorted population, cloned so callers own them outright.
func (e *Engine) selectCandidates(pop []*Individual) []*Individual {
	count := e.problem.CandidateCount
	if count <= 0 {
		count = 1
	}

	seen := make(map[string]bool, count)
	out := make([]*Individual, 0, count)
	for _, ind := range pop {
		fp := ind.Timetable.Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, ind.Clone())
		if len(out) == count {
			break
		}
	}
	return out
}

// problemSummary renders the snapshot compactly for the phase strategy prompt.
func (e *Engine) problemSummary() string {
	sessions := 0
	for _, batch := range e.snap.batches {
		for _, subjectID := range batch.SubjectIDs {
			sessions += e.snap.subjects[subjectID].HoursPerWeek
		}
	}
	return fmt.Sprintf(
		"batches=%d subjects=%d faculty=%d rooms=%d pinned=%d sessions_per_week=%d days=%d slots_per_day=%d generations=%d population=%d",
		len(e.snap.batches), len(e.snap.subjects), len(e.snap.faculty), len(e.snap.rooms),
		len(e.problem.Pinned), sessions,
		e.snap.geometry.Days, e.snap.geometry.SlotsPerDay,
		e.cfg.Generations, e.cfg.PopulationSize,
	)
}

// candidateSummary lists the candidate's sessions with ids so the advisor can
// reference them in an intervention.
func (e *Engine) candidateSummary(ind *Individual) string {
	var b strings.Builder
	fmt.Fprintf(&b, "score=%.1f student_gaps=%d faculty_gaps=%d\n",
		ind.Metrics.Score, ind.Metrics.StudentGaps, ind.Metrics.FacultyGaps)
	for _, a := range ind.Timetable.Assignments() {
		pin := ""
		if a.Pinned {
			pin = " pinned"
		}
		fmt.Fprintf(&b, "id=%s batch=%s subject=%s day=%d slot=%d%s\n",
			a.ID, a.BatchID, a.SubjectID, a.Day, a.Slot, pin)
	}
	return b.String()
}

func (e *Engine) observeGeneration(phase string, gen int, bestScore float64) {
	if e.sink != nil {
		e.sink.ObserveGeneration(phase, gen, bestScore)
	}
	e.logger.Debug("generation evaluated",
		zap.String("phase", phase),
		zap.Int("generation", gen),
		zap.Float64("best_score", bestScore))
}

func (e *Engine) recordAdvisory(kind string, ok bool) {
	if e.sink != nil {
		e.sink.RecordAdvisory(kind, ok)
	}
}

func findAssignment(t *models.Timetable, id string) *models.ClassAssignment {
	for _, a := range t.Assignments() {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// sortByScore orders the population best first. The sort is stable so equal
// scores keep their relative order across generations.
func sortByScore(pop []*Individual) {
	sort.SliceStable(pop, func(i, j int) bool {
		return pop[i].Metrics.Score > pop[j].Metrics.Score
	})
}
