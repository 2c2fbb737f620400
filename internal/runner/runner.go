// Package runner drives the simulator on a wall-clock timer. The engine
// itself does no scheduling; this is the external loop that calls TakeTurn
// and feeds each result to a sink.
package runner

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/echochamber/internal/dynamics"
)

// Runner repeatedly advances the simulator until it stops or is told to.
// The simulator is only ever touched under the runner's lock: each turn
// runs with it held, and Do gives other goroutines serialized access.
type Runner struct {
	Sim      *dynamics.Simulator
	Interval time.Duration // Base turn interval; 0 runs flat out.

	// OnTurn receives every completed turn result. Called without the
	// lock held; the result is a value copy owned by the receiver.
	OnTurn func(dynamics.TurnResult)

	// StopOnConvergence halts the loop once the simulator latches its
	// convergence flag.
	StopOnConvergence bool

	mu      sync.Mutex
	speed   float64
	running bool
}

// New creates a runner with a one-turn-per-interval default.
func New(sim *dynamics.Simulator, interval time.Duration) *Runner {
	return &Runner{Sim: sim, Interval: interval, speed: 1.0}
}

// Run executes the loop. Blocks until the simulator stops, convergence is
// reached (when configured), or Stop is called.
func (r *Runner) Run() {
	r.mu.Lock()
	r.running = true
	turn := r.Sim.Turn()
	r.mu.Unlock()
	slog.Info("runner started", "turn", turn, "speed", r.Speed())

	for {
		r.mu.Lock()
		if !r.running || r.Sim.Stopped() {
			r.mu.Unlock()
			break
		}
		speed := r.speed
		if speed <= 0 {
			r.mu.Unlock()
			// Paused. Sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}
		start := time.Now()
		res := r.Sim.TakeTurn()
		converged := r.Sim.ConvergenceReached()
		r.mu.Unlock()

		if r.OnTurn != nil {
			r.OnTurn(res)
		}

		if r.StopOnConvergence && converged {
			slog.Info("runner stopping on convergence", "turn", res.Turn)
			break
		}

		if r.Interval > 0 {
			elapsed := time.Since(start)
			target := time.Duration(float64(r.Interval) / speed)
			if elapsed < target {
				time.Sleep(target - elapsed)
			}
		}
	}

	r.mu.Lock()
	r.running = false
	turn = r.Sim.Turn()
	r.mu.Unlock()
	slog.Info("runner stopped", "turn", turn)
}

// Do runs fn with the loop lock held: no turn is in flight while fn
// executes. Use it for any mutation of the simulator from outside the loop.
func (r *Runner) Do(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// Stop halts the loop after the in-flight turn completes.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// Running reports whether the loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Speed returns the current speed multiplier.
func (r *Runner) Speed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

// SetSpeed changes the speed multiplier. 0 pauses the loop.
func (r *Runner) SetSpeed(v float64) {
	r.mu.Lock()
	r.speed = v
	r.mu.Unlock()
}
