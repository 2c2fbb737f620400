package dynamics

import (
	"log/slog"

	"github.com/talgya/echochamber/internal/stats"
)

const (
	// convergenceWindow is how many recent convergence-metric values the
	// variance test runs over.
	convergenceWindow = 20

	// homophilyShare is the one-opinion share above which a group counts
	// as homophilous.
	homophilyShare = 0.8

	// homophilousRatio is the fraction of non-empty groups that must be
	// homophilous before a group-based model may declare convergence.
	homophilousRatio = 0.7
)

// checkConvergence appends the turn's metric and latches the convergence
// flag when the recent window is quiet enough. The flag is one-shot.
func (s *Simulator) checkConvergence(snap stats.Snapshot) {
	s.convHistory = append(s.convHistory, snap.ConvergenceMetric)
	if s.converged || len(s.convHistory) < convergenceWindow {
		return
	}

	v := variance(s.convHistory[len(s.convHistory)-convergenceWindow:])
	if v >= s.cfg.ConvergenceThreshold {
		return
	}
	if s.cfg.Model.GroupBased() && !s.groupsHomophilous(snap) {
		return
	}

	s.converged = true
	slog.Info("convergence reached",
		"turn", s.turn,
		"metric_variance", v,
		"segregation_index", snap.SegregationIndex,
	)
}

// groupsHomophilous reports whether at least 70% of non-empty groups have
// more than 80% of members sharing one opinion. Empty groups do not count
// toward the ratio.
func (s *Simulator) groupsHomophilous(snap stats.Snapshot) bool {
	nonEmpty, homophilous := 0, 0
	for _, g := range snap.Groups {
		if g.Members == 0 {
			continue
		}
		nonEmpty++
		if g.ProShare > homophilyShare || g.ConShare > homophilyShare {
			homophilous++
		}
	}
	if nonEmpty == 0 {
		return false
	}
	return float64(homophilous)/float64(nonEmpty) >= homophilousRatio
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
