package analysis

import (
	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/entity"
)

// Prediction is the closed-form stationary distribution for a model type.
type Prediction struct {
	Distribution map[entity.Opinion]float64 `json:"distribution"`
	Description  string                     `json:"description"`
}

// Dominance thresholds for the combined model: above the upper cut
// segregation dynamics dictate the outcome, below the lower cut voter
// dynamics do.
const (
	dominanceUpper = 0.7
	dominanceLower = 0.3
)

// Theoretical returns the stationary prediction for the configured model.
//
// Segregation-only models re-sort membership but never change opinions, so
// they preserve the initial split. Voter models drift to single-opinion
// consensus, with the winning-opinion probability biased toward the initial
// majority. The combined model follows whichever dynamic dominates.
func (a *Analyzer) Theoretical() Prediction {
	split := a.cfg.InitialOpinionSplit

	switch a.cfg.Model {
	case config.ModelSchellingEdge, config.ModelClassicalSchelling:
		return Prediction{
			Distribution: splitDistribution(split),
			Description:  "segregation re-sorts membership; aggregate opinion counts are preserved",
		}

	case config.ModelVoterPairwise, config.ModelVoterGroup:
		return voterPrediction(split, a.cfg.Gamma)

	case config.ModelCombined:
		seg := a.cfg.C * a.cfg.GSteepness
		vot := 10 * a.cfg.Gamma
		dominance := 0.0
		if seg+vot > 0 {
			dominance = seg / (seg + vot)
		}
		switch {
		case dominance > dominanceUpper:
			return Prediction{
				Distribution: splitDistribution(split),
				Description:  "segregation dominates; initial split preserved under rewiring",
			}
		case dominance < dominanceLower:
			return voterPrediction(split, a.cfg.Gamma)
		default:
			return Prediction{
				Distribution: splitDistribution(split),
				Description:  "mixed equilibrium: rewiring and influence balance, preserving the initial split",
			}
		}
	}

	return Prediction{
		Distribution: splitDistribution(split),
		Description:  "no opinion dynamics; initial split preserved exactly",
	}
}

// voterPrediction biases the consensus-winner probability linearly by gamma
// and the initial split, clamped away from certainty.
func voterPrediction(split, gamma float64) Prediction {
	pPro := split + gamma*(split-0.5)
	pPro = clamp(pPro, 0.01, 0.99)
	return Prediction{
		Distribution: map[entity.Opinion]float64{
			entity.OpinionPro: pPro,
			entity.OpinionCon: 1 - pPro,
		},
		Description: "eventual single-opinion consensus; probability of each winner shown",
	}
}

func splitDistribution(split float64) map[entity.Opinion]float64 {
	return map[entity.Opinion]float64{
		entity.OpinionPro: split,
		entity.OpinionCon: 1 - split,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
