package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/dynamics"
	"github.com/talgya/echochamber/internal/entropy"
	"github.com/talgya/echochamber/internal/graph"
)

func testRunner(t *testing.T, cfg config.Config) *Runner {
	t.Helper()
	src := entropy.NewSource(cfg.Seed)
	pop, err := graph.Build(cfg, src)
	require.NoError(t, err)
	sim, err := dynamics.NewSimulator(pop, cfg, src)
	require.NoError(t, err)
	return New(sim, 0)
}

// The no-op epidemic placeholder has a zero convergence metric from the
// first turn, so the loop halts by itself exactly when the window fills.
func TestRunStopsOnConvergence(t *testing.T) {
	cfg := config.Default()
	cfg.People = 20
	cfg.Groups = 2
	cfg.Model = config.ModelSIREpidemic
	cfg.MaxTurns = 1000

	r := testRunner(t, cfg)
	r.StopOnConvergence = true

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("runner did not stop on convergence")
	}

	assert.True(t, r.Sim.ConvergenceReached())
	assert.Equal(t, 20, r.Sim.Turn())
	assert.False(t, r.Running())
}

func TestSpeedAccessors(t *testing.T) {
	r := testRunner(t, config.Default())
	assert.Equal(t, 1.0, r.Speed(), "real-time default")
	r.SetSpeed(3)
	assert.Equal(t, 3.0, r.Speed())
}

// Do holds the loop lock, so simulator mutations through it never
// interleave with a turn; here it just proves the callback runs inline.
func TestDoRunsInline(t *testing.T) {
	r := testRunner(t, config.Default())
	turns := 0
	r.Do(func() {
		r.Sim.TakeTurn()
		turns = r.Sim.Turn()
	})
	assert.Equal(t, 1, turns)
}
