// Package analysis tracks empirical opinion-share history, detects
// distributional stationarity, and compares observations against a
// model-specific theoretical stationary prediction. It is independent of
// the simulator's own convergence latch: the two flags answer different
// questions on different windows and are never merged.
package analysis

import (
	"log/slog"
	"sync"

	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/entity"
)

const (
	// stationarityWindow is the sample count the per-opinion variance test
	// runs over.
	stationarityWindow = 50

	// stationarityTolerance is the variance ceiling for every opinion's
	// proportion within the window.
	stationarityTolerance = 0.01
)

// Sample is one recorded empirical distribution.
type Sample struct {
	Turn        int                        `json:"turn"`
	Proportions map[entity.Opinion]float64 `json:"proportions"`
	Total       int                        `json:"total"`
}

// Analyzer accumulates empirical samples and the stationarity latch.
// Safe for concurrent use: samples arrive from the turn loop while the
// API reads reports.
type Analyzer struct {
	cfg config.Config

	mu      sync.Mutex
	history []Sample

	detectedAt *int
	final      map[entity.Opinion]float64
}

// New creates an analyzer for the given run configuration.
func New(cfg config.Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// RecordEmpirical normalizes the opinion counts, appends them to history,
// and runs the stationarity check: once 50 samples exist, every opinion's
// proportion variance over the last 50 must fall below the tolerance.
// Detection is one-shot; detectedAt is never overwritten.
func (a *Analyzer) RecordEmpirical(counts map[entity.Opinion]int, turn int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := 0
	for _, c := range counts {
		total += c
	}
	props := make(map[entity.Opinion]float64, len(counts))
	for op, c := range counts {
		if total > 0 {
			props[op] = float64(c) / float64(total)
		} else {
			props[op] = 0
		}
	}
	a.history = append(a.history, Sample{Turn: turn, Proportions: props, Total: total})

	if a.detectedAt != nil || len(a.history) < stationarityWindow {
		return
	}

	window := a.history[len(a.history)-stationarityWindow:]
	for op := range windowKeys(window) {
		vals := make([]float64, len(window))
		for i, s := range window {
			vals[i] = s.Proportions[op]
		}
		if variance(vals) >= stationarityTolerance {
			return
		}
	}

	t := turn
	a.detectedAt = &t
	a.final = make(map[entity.Opinion]float64, len(props))
	for op, p := range props {
		a.final[op] = p
	}
	slog.Info("empirical distribution stationary", "turn", turn, "distribution", props)
}

// StationaryAt returns the turn the stationarity latch fired, if it has.
func (a *Analyzer) StationaryAt() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detectedAt == nil {
		return 0, false
	}
	return *a.detectedAt, true
}

// FinalDistribution returns the snapshot taken when stationarity latched,
// or nil.
func (a *Analyzer) FinalDistribution() map[entity.Opinion]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.final
}

// Current returns the most recent empirical proportions, or nil before the
// first sample.
func (a *Analyzer) Current() map[entity.Opinion]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentLocked()
}

func (a *Analyzer) currentLocked() map[entity.Opinion]float64 {
	if len(a.history) == 0 {
		return nil
	}
	return a.history[len(a.history)-1].Proportions
}

// History returns the recorded samples.
func (a *Analyzer) History() []Sample {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Sample, len(a.history))
	copy(out, a.history)
	return out
}

// Reset discards history and the stationarity latch.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
	a.detectedAt = nil
	a.final = nil
}

func windowKeys(window []Sample) map[entity.Opinion]bool {
	keys := make(map[entity.Opinion]bool)
	for _, s := range window {
		for op := range s.Proportions {
			keys[op] = true
		}
	}
	return keys
}

func variance(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	sum := 0.0
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(vals))
}
