package engine

import "github.com/noah-isme/sma-uctp-engine/internal/advisory"

// Phase is one stage of the multi-phase search with its own operator mix.
type Phase struct {
	Name        string
	Generations int
	Weights     OperatorWeights
}

// defaultPhases splits the generation budget into exploration, balanced, and
// exploitation stages. Used whenever the advisor has no plan to offer.
func defaultPhases(generations int) []Phase {
	explore := generations * 4 / 10
	balanced := generations * 3 / 10
	exploit := generations - explore - balanced
	if explore < 1 {
		explore = 1
	}
	if balanced < 1 {
		balanced = 1
	}
	if exploit < 1 {
		exploit = 1
	}

	return []Phase{
		{
			Name:        "exploration",
			Generations: explore,
			Weights:     OperatorWeights{Swap: 0.2, Move: 0.2, Anneal: 0.1, Crossover: 0.5},
		},
		{
			Name:        "balanced",
			Generations: balanced,
			Weights:     OperatorWeights{Swap: 0.25, Move: 0.25, Anneal: 0.25, Crossover: 0.25},
		},
		{
			Name:        "exploitation",
			Generations: exploit,
			Weights:     OperatorWeights{Swap: 0.3, Move: 0.2, Anneal: 0.4, Crossover: 0.1},
		},
	}
}

// phasesFromProposals converts an advisor plan into phases, rejecting plans
// with unusable entries. A nil return means fall back to the defaults.
func phasesFromProposals(proposals []advisory.PhaseProposal) []Phase {
	if len(proposals) == 0 {
		return nil
	}
	phases := make([]Phase, 0, len(proposals))
	for _, p := range proposals {
		w := OperatorWeights{Swap: p.Swap, Move: p.Move, Anneal: p.Anneal, Crossover: p.Crossover}
		if p.Generations <= 0 || w.total() <= 0 ||
			p.Swap < 0 || p.Move < 0 || p.Anneal < 0 || p.Crossover < 0 {
			return nil
		}
		name := p.Name
		if name == "" {
			name = "advised"
		}
		phases = append(phases, Phase{Name: name, Generations: p.Generations, Weights: w})
	}
	return phases
}
