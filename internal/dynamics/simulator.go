// Package dynamics advances the simulation one discrete turn at a time,
// dispatching to the configured rule set and deriving per-turn statistics
// and convergence state. Execution is single-threaded and synchronous; the
// entity graph is exclusively owned and mutated here.
package dynamics

import (
	"fmt"
	"log/slog"

	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/entity"
	"github.com/talgya/echochamber/internal/entropy"
	"github.com/talgya/echochamber/internal/stats"
)

// Simulator binds a population to a configuration and rule set.
type Simulator struct {
	pop   *entity.Population
	cfg   config.Config
	src   *entropy.Source
	model model

	turn        int
	history     []stats.Snapshot // history[0] is the turn-0 baseline
	convHistory []float64
	converged   bool
	stopped     bool
}

// AggregateView is the current and historical per-turn statistics.
type AggregateView struct {
	Current stats.Snapshot   `json:"current"`
	History []stats.Snapshot `json:"history"`
}

// NewSimulator constructs the engine bound to a graph and configuration.
// The configuration is validated fail-fast; a turn-0 baseline snapshot is
// computed so the first real turn has a previous state to diff against.
func NewSimulator(pop *entity.Population, cfg config.Config, src *entropy.Source) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new simulator: %w", err)
	}
	m, err := modelFor(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("new simulator: %w", err)
	}
	s := &Simulator{pop: pop, cfg: cfg, src: src, model: m}
	s.history = append(s.history, stats.Compute(pop, 0, nil))
	return s, nil
}

// TakeTurn advances one turn: clears turn markers, applies the rule set,
// computes statistics over the mutated state, and runs the convergence
// check. It never fails on a probabilistic outcome.
func (s *Simulator) TakeTurn() TurnResult {
	s.turn++
	for _, p := range s.pop.People {
		p.ClearChanged()
	}

	tc := &turnContext{pop: s.pop, cfg: s.cfg, src: s.src, turn: s.turn}
	s.model.apply(tc)

	if s.cfg.StatisticsInterval > 0 && s.turn%s.cfg.StatisticsInterval == 0 {
		for _, g := range s.pop.Groups {
			g.RecordComposition(s.turn)
		}
	}

	prev := s.history[len(s.history)-1]
	snap := stats.Compute(s.pop, s.turn, &prev)
	s.history = append(s.history, snap)

	s.checkConvergence(snap)
	if s.turn >= s.cfg.MaxTurns && !s.stopped {
		s.stopped = true
		slog.Info("max turns reached", "turn", s.turn)
	}

	return TurnResult{
		Turn:           s.turn,
		EdgeChanges:    tc.edges,
		OpinionChanges: tc.flips,
		Stats:          snap,
	}
}

// Turn returns the most recently completed turn index.
func (s *Simulator) Turn() int {
	return s.turn
}

// Model returns the active rule-set name.
func (s *Simulator) Model() string {
	return s.model.name()
}

// Config returns the bound configuration.
func (s *Simulator) Config() config.Config {
	return s.cfg
}

// Population exposes the entity graph for validation and tests. External
// collaborators must not mutate it.
func (s *Simulator) Population() *entity.Population {
	return s.pop
}

// ConvergenceReached reports the latched convergence flag. Once true it
// never reverts within a run.
func (s *Simulator) ConvergenceReached() bool {
	return s.converged
}

// Stopped reports whether the turn counter reached max turns. Independent
// of convergence.
func (s *Simulator) Stopped() bool {
	return s.stopped
}

// Statistics returns the current and historical snapshots. Calling it twice
// without an intervening turn yields identical data.
func (s *Simulator) Statistics() AggregateView {
	hist := make([]stats.Snapshot, len(s.history))
	copy(hist, s.history)
	return AggregateView{
		Current: s.history[len(s.history)-1],
		History: hist,
	}
}

// Reset discards history, counters, and latches, recomputing the turn-0
// baseline. The entity graph is kept as-is; callers wanting a fresh
// population must rebuild it.
func (s *Simulator) Reset() {
	s.turn = 0
	s.converged = false
	s.stopped = false
	s.convHistory = nil
	s.history = s.history[:0]
	s.history = append(s.history, stats.Compute(s.pop, 0, nil))
}
