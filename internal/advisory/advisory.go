// Package advisory defines the optional external advisor the engine consults
// for phase strategies, stagnation interventions, and weight tuning. Advice is
// always best-effort: any failure degrades to running without it.
package advisory

import (
	"context"

	"github.com/noah-isme/sma-uctp-engine/internal/models"
)

// PhaseProposal is one phase of a proposed multi-phase strategy.
type PhaseProposal struct {
	Name        string  `json:"name"`
	Generations int     `json:"generations"`
	Swap        float64 `json:"swap"`
	Move        float64 `json:"move"`
	Anneal      float64 `json:"anneal"`
	Crossover   float64 `json:"crossover"`
}

// Intervention names two placed sessions whose coordinates should be swapped
// to shake a stagnated search.
type Intervention struct {
	SessionA string `json:"session_a"`
	SessionB string `json:"session_b"`
}

// Service is the advisor contract. Implementations return (nil, nil) or a nil
// intervention when they have no advice to give; callers treat errors the same
// way.
type Service interface {
	// ProposePhaseStrategy suggests a phase plan for the problem summary.
	ProposePhaseStrategy(ctx context.Context, problemSummary string) ([]PhaseProposal, error)

	// ProposeIntervention suggests a targeted swap on the current best
	// candidate, described by summary.
	ProposeIntervention(ctx context.Context, bestSummary string) (*Intervention, error)

	// TuneWeights adjusts the constraint weights given recent best-score
	// samples.
	TuneWeights(ctx context.Context, base models.ConstraintWeights, feedback []float64) (models.ConstraintWeights, error)
}

type nopService struct{}

// Nop returns an advisor that never has advice. The engine falls back to its
// built-in defaults everywhere.
func Nop() Service { return nopService{} }

func (nopService) ProposePhaseStrategy(context.Context, string) ([]PhaseProposal, error) {
	return nil, nil
}

func (nopService) ProposeIntervention(context.Context, string) (*Intervention, error) {
	return nil, nil
}

func (nopService) TuneWeights(_ context.Context, base models.ConstraintWeights, _ []float64) (models.ConstraintWeights, error) {
	return base, nil
}
