package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-uctp-engine/internal/advisory"
)

func TestDefaultPhasesSpendTheFullBudget(t *testing.T) {
	for _, generations := range []int{1, 3, 10, 120} {
		phases := defaultPhases(generations)
		require.Len(t, phases, 3)

		total := 0
		for _, p := range phases {
			assert.GreaterOrEqual(t, p.Generations, 1)
			assert.Greater(t, p.Weights.total(), 0.0)
			total += p.Generations
		}
		assert.GreaterOrEqual(t, total, generations)
	}
}

func TestPhasesFromProposals(t *testing.T) {
	phases := phasesFromProposals([]advisory.PhaseProposal{
		{Name: "wide", Generations: 10, Crossover: 0.8, Swap: 0.2},
		{Generations: 5, Anneal: 1},
	})
	require.Len(t, phases, 2)
	assert.Equal(t, "wide", phases[0].Name)
	assert.Equal(t, "advised", phases[1].Name, "unnamed phases get a placeholder")
	assert.Equal(t, 10, phases[0].Generations)
}

func TestPhasesFromProposalsRejectsBadPlans(t *testing.T) {
	assert.Nil(t, phasesFromProposals(nil))
	assert.Nil(t, phasesFromProposals([]advisory.PhaseProposal{{Generations: 0, Swap: 1}}))
	assert.Nil(t, phasesFromProposals([]advisory.PhaseProposal{{Generations: 5}}), "all-zero weights")
	assert.Nil(t, phasesFromProposals([]advisory.PhaseProposal{{Generations: 5, Swap: -1, Move: 2}}))
}
