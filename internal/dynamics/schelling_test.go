package dynamics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/entity"
	"github.com/talgya/echochamber/internal/entropy"
	"github.com/talgya/echochamber/internal/graph"
	"github.com/talgya/echochamber/internal/stats"
)

func TestLeaveProbabilityShape(t *testing.T) {
	pop := entity.NewPopulation(4, 1)
	pop.People[0].Opinion = entity.OpinionPro
	pop.People[1].Opinion = entity.OpinionPro
	pop.People[2].Opinion = entity.OpinionPro
	pop.People[3].Opinion = entity.OpinionCon
	for i := 0; i < 4; i++ {
		pop.Join(entity.PersonID(i), 0, 0)
	}
	g := pop.Groups[0]

	// A con member of a pro-majority group leaves more readily than a pro
	// member, and the response sharpens with steepness.
	conLow := leaveProbability(entity.OpinionCon, g, 2)
	proLow := leaveProbability(entity.OpinionPro, g, 2)
	conHigh := leaveProbability(entity.OpinionCon, g, 10)
	assert.Greater(t, conLow, proLow)
	assert.Greater(t, conHigh, conLow)

	// Steepness 0 degenerates to the legacy constant 0.5.
	assert.InDelta(t, 0.5, leaveProbability(entity.OpinionCon, g, 0), 1e-12)
	assert.InDelta(t, 0.5, leaveProbability(entity.OpinionPro, g, 0), 1e-12)
}

// An edge created this turn is protected by the just-changed marker: even
// with a 50% leave probability (steepness 0), turn one on an empty graph
// produces only creations.
func TestJustChangedPreventsJoinThenLeave(t *testing.T) {
	cfg := config.Default()
	cfg.People = 30
	cfg.Groups = 3
	cfg.Lambda = 1e-9 // Start essentially edgeless.
	cfg.C = float64(cfg.Groups)
	cfg.GSteepness = 0
	cfg.Model = config.ModelSchellingEdge

	sim := buildSim(t, cfg)
	require.Zero(t, sim.Population().TotalEdges())

	res := sim.TakeTurn()
	for _, ec := range res.EdgeChanges {
		assert.True(t, ec.Created, "no same-turn deletions of fresh edges")
	}
	assert.Len(t, res.EdgeChanges, cfg.People*cfg.Groups, "creation probability c/m = 1")
}

// Schelling-edge dynamics rewire ties but never touch opinions: the
// aggregate split is preserved exactly while groups purify.
func TestSchellingPreservesOpinionsAndSegregates(t *testing.T) {
	cfg := config.Default()
	cfg.People = 200
	cfg.Groups = 4
	cfg.Lambda = 3
	cfg.C = 2
	cfg.GSteepness = 8
	cfg.Model = config.ModelSchellingEdge
	cfg.MaxTurns = 400

	src := entropy.NewSource(cfg.Seed)
	pop, err := graph.Build(cfg, src)
	require.NoError(t, err)
	sim, err := NewSimulator(pop, cfg, src)
	require.NoError(t, err)

	initial := sim.Statistics().Current
	var final stats.Snapshot
	for i := 0; i < cfg.MaxTurns; i++ {
		res := sim.TakeTurn()
		require.Empty(t, res.OpinionChanges, "edge dynamics never flip opinions")
		final = res.Stats
	}

	assert.Equal(t, initial.Pro, final.Pro)
	assert.Equal(t, initial.Con, final.Con)

	assert.Less(t, meanDiversity(final), meanDiversity(initial),
		"per-group diversity trends down as groups purify")
}

// meanDiversity averages the Gini-Simpson score over non-empty groups.
func meanDiversity(snap stats.Snapshot) float64 {
	sum, n := 0.0, 0
	for _, g := range snap.Groups {
		if g.Members == 0 {
			continue
		}
		sum += g.Diversity
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
