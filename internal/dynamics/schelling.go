package dynamics

import (
	"math"

	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/entity"
)

// schellingEdge models dynamic rewiring: ties form and sever independently
// of any capacity-constrained move. Unconnected pairs connect with
// probability c/m; connected pairs sever with a probability given by the
// deformation function applied to the signed opinion imbalance of the group.
type schellingEdge struct{}

func (schellingEdge) name() string { return string(config.ModelSchellingEdge) }

func (schellingEdge) apply(tc *turnContext) {
	m := len(tc.pop.Groups)
	createP := clamp01(tc.cfg.C / float64(m))

	for _, p := range tc.pop.People {
		for _, g := range tc.pop.Groups {
			if !p.Groups.Contains(int(g.ID)) {
				if tc.src.Chance(createP) {
					tc.join(p.ID, g.ID, "")
				}
				continue
			}
			// Edges touched this turn (typically just created) stay put.
			if p.ChangedThisTurn(g.ID) {
				continue
			}
			if tc.src.Chance(leaveProbability(p.Opinion, g, tc.cfg.GSteepness)) {
				tc.leave(p.ID, g.ID, "")
			}
		}
	}
}

// leaveProbability is the deformation function g applied to
// -opinion * (proShare - 0.5) * 2: positive when the group majority
// disagrees with the person, negative when it agrees. The logistic form
// g(x) = 1/(1+exp(-steepness*x)) is the canonical rule; steepness 0
// reproduces the legacy fixed 0.5 probability and a very large steepness
// reproduces the legacy high/low threshold pair.
func leaveProbability(op entity.Opinion, g *entity.Group, steepness float64) float64 {
	imbalance := (g.ProShare() - 0.5) * 2
	x := -float64(op) * imbalance
	return clamp01(1 / (1 + math.Exp(-steepness*x)))
}
