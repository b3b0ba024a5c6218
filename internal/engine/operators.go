package engine

import (
	"math"
	"math/rand"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

// heuristic identifies one variation operator.
type heuristic int

const (
	heuristicSwap heuristic = iota
	heuristicMove
	heuristicAnneal
	heuristicCrossover
)

func (h heuristic) String() string {
	switch h {
	case heuristicSwap:
		return "swap"
	case heuristicMove:
		return "move"
	case heuristicAnneal:
		return "anneal"
	default:
		return "crossover"
	}
}

// OperatorWeights is the sampling distribution over the variation operators
// within one phase. Weights need not sum to 1.
type OperatorWeights struct {
	Swap      float64
	Move      float64
	Anneal    float64
	Crossover float64
}

func (w OperatorWeights) total() float64 {
	return w.Swap + w.Move + w.Anneal + w.Crossover
}

// pickHeuristic samples one operator by cumulative weight walk.
func pickHeuristic(rng *rand.Rand, w OperatorWeights) heuristic {
	total := w.total()
	if total <= 0 {
		return heuristicSwap
	}
	r := rng.Float64() * total
	if r < w.Swap {
		return heuristicSwap
	}
	r -= w.Swap
	if r < w.Move {
		return heuristicMove
	}
	r -= w.Move
	if r < w.Anneal {
		return heuristicAnneal
	}
	return heuristicCrossover
}

// tournament samples k individuals with replacement and returns the strictly
// best one; on ties the earliest sampled wins.
func (e *Engine) tournament(rng *rand.Rand, pop []*Individual) *Individual {
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < e.cfg.TournamentSize; i++ {
		c := pop[rng.Intn(len(pop))]
		if c.Metrics.Score > best.Metrics.Score {
			best = c
		}
	}
	return best
}

// crossover builds an offspring by cutting the week at a random day: every
// batch takes its days before the cut from parent a and the rest from parent
// b. Within a batch grid the two halves cannot collide; cross-batch conflicts
// are left for repair.
func (e *Engine) crossover(rng *rand.Rand, a, b *Individual) *Individual {
	cut := 1
	if e.snap.geometry.Days > 1 {
		cut += rng.Intn(e.snap.geometry.Days - 1)
	}

	t := models.NewTimetable(e.snap.geometry, e.snap.batchIDs)
	for _, batchID := range e.snap.batchIDs {
		for day := 0; day < t.Days; day++ {
			src := a.Timetable
			if day >= cut {
				src = b.Timetable
			}
			for slot := 0; slot < t.SlotsPerDay; slot++ {
				if cell := src.At(batchID, day, slot); cell != nil {
					t.Place(cell.Clone())
				}
			}
		}
	}
	return &Individual{Timetable: t}
}

// swapMutation clones the individual and exchanges the coordinates of two
// random non-pinned assignments. When either new cell cannot take its
// assignment the swap is rolled back.
func (e *Engine) swapMutation(rng *rand.Rand, ind *Individual) *Individual {
	out := ind.Clone()
	t := out.Timetable

	movable := movableAssignments(t)
	if len(movable) < 2 {
		return out
	}
	i := rng.Intn(len(movable))
	j := rng.Intn(len(movable) - 1)
	if j >= i {
		j++
	}
	a, b := movable[i], movable[j]

	t.Remove(a.BatchID, a.Day, a.Slot)
	t.Remove(b.BatchID, b.Day, b.Slot)
	a.Day, a.Slot, b.Day, b.Slot = b.Day, b.Slot, a.Day, a.Slot

	placedA := t.Place(a)
	if !placedA || !t.Place(b) {
		// Roll back, removing only what this swap actually placed. A target
		// cell may hold a third assignment that must stay on the grid.
		if placedA {
			t.Remove(a.BatchID, a.Day, a.Slot)
		}
		a.Day, a.Slot, b.Day, b.Slot = b.Day, b.Slot, a.Day, a.Slot
		t.Place(a)
		t.Place(b)
	}
	return out
}

// moveMutation clones the individual, lifts one random non-pinned assignment,
// and relocates it to a random cell that passes every oracle check. Draws are
// bounded; on exhaustion the assignment returns to its original cell.
func (e *Engine) moveMutation(rng *rand.Rand, ind *Individual) *Individual {
	out := ind.Clone()
	t := out.Timetable

	movable := movableAssignments(t)
	if len(movable) == 0 {
		return out
	}
	a := movable[rng.Intn(len(movable))]
	origDay, origSlot := a.Day, a.Slot
	t.Remove(a.BatchID, a.Day, a.Slot)

	for attempt := 0; attempt < e.cfg.MoveAttempts; attempt++ {
		day := rng.Intn(t.Days)
		slot := rng.Intn(t.SlotsPerDay)
		a.Day, a.Slot = day, slot
		if e.placementFree(t, a) {
			t.Place(a)
			return out
		}
	}

	a.Day, a.Slot = origDay, origSlot
	t.Place(a)
	return out
}

// anneal runs a short simulated annealing walk from the individual: random
// pairwise swaps, accepting improvements always and regressions with
// probability exp(delta/temperature), cooling geometrically. The best state
// ever visited is returned, not the final one.
func (e *Engine) anneal(rng *rand.Rand, ind *Individual) *Individual {
	cur := ind.Clone()
	e.evaluate(cur)
	best := cur.Clone()

	for temp := e.cfg.AnnealStartTemp; temp > e.cfg.AnnealFloorTemp; temp *= e.cfg.AnnealCooling {
		cand := e.swapMutation(rng, cur)
		e.evaluate(cand)

		delta := cand.Metrics.Score - cur.Metrics.Score
		if delta > 0 || rng.Float64() < math.Exp(delta/temp) {
			cur = cand
		}
		if cur.Metrics.Score > best.Metrics.Score {
			best = cur.Clone()
		}
	}
	return best
}

// movableAssignments lists every non-pinned assignment on the grid.
func movableAssignments(t *models.Timetable) []*models.ClassAssignment {
	all := t.Assignments()
	movable := make([]*models.ClassAssignment, 0, len(all))
	for _, a := range all {
		if !a.Pinned {
			movable = append(movable, a)
		}
	}
	return movable
}
