package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/entropy"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.People = 200
	cfg.Groups = 8
	cfg.Lambda = 2
	return cfg
}

func TestBuildCountsAndConsistency(t *testing.T) {
	cfg := testConfig()
	pop, err := Build(cfg, entropy.NewSource(cfg.Seed))
	require.NoError(t, err)

	require.Len(t, pop.People, cfg.People)
	require.Len(t, pop.Groups, cfg.Groups)
	assert.Empty(t, pop.Validate())

	for _, p := range pop.People {
		assert.True(t, p.Opinion.Valid())
	}
}

func TestBuildExpectedEdgeCount(t *testing.T) {
	cfg := testConfig()
	cfg.People = 1000
	pop, err := Build(cfg, entropy.NewSource(7))
	require.NoError(t, err)

	// Expected total edges = n * lambda for uniform weights. Allow 20%
	// slack for binomial noise.
	expected := float64(cfg.People) * cfg.Lambda
	assert.InDelta(t, expected, float64(pop.TotalEdges()), expected*0.2)
}

func TestBuildZeroPeopleFails(t *testing.T) {
	cfg := testConfig()
	cfg.People = 0

	pop, err := Build(cfg, entropy.NewSource(1))
	require.Error(t, err)
	require.Nil(t, pop, "no partial population on failure")
	assert.Contains(t, err.Error(), "People")
}

func TestBuildIsSeedReproducible(t *testing.T) {
	cfg := testConfig()
	a, err := Build(cfg, entropy.NewSource(99))
	require.NoError(t, err)
	b, err := Build(cfg, entropy.NewSource(99))
	require.NoError(t, err)

	require.Equal(t, a.TotalEdges(), b.TotalEdges())
	for i := range a.People {
		assert.Equal(t, a.People[i].Opinion, b.People[i].Opinion)
		assert.Equal(t, a.People[i].Groups.Values(), b.People[i].Groups.Values())
	}
}

func TestWeightModes(t *testing.T) {
	tests := []struct {
		mode     config.WeightMode
		lo, hi   float64
		constant bool
	}{
		{config.WeightsUniform, 1.0, 1.0, true},
		{config.WeightsBounded, 0.5, 2.5, false},
		{config.WeightsCorrelated, 0.5, 2.5, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			cfg := testConfig()
			cfg.Groups = 40
			cfg.GroupWeights = tc.mode

			pop, err := Build(cfg, entropy.NewSource(cfg.Seed))
			require.NoError(t, err)

			for _, g := range pop.Groups {
				assert.GreaterOrEqual(t, g.Weight, tc.lo)
				assert.LessOrEqual(t, g.Weight, tc.hi)
				if tc.constant {
					assert.Equal(t, 1.0, g.Weight)
				}
			}
		})
	}
}
