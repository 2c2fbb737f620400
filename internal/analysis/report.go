package analysis

import (
	"math"

	"github.com/talgya/echochamber/internal/entity"
)

// klFloor replaces zero probabilities so the logarithm stays defined.
const klFloor = 0.001

// Report bundles the theoretical prediction against the empirical record.
type Report struct {
	Theoretical Prediction                 `json:"theoretical"`
	Current     map[entity.Opinion]float64 `json:"current,omitempty"`
	Samples     int                        `json:"samples"`

	StationaryAt      *int                       `json:"stationary_at,omitempty"`
	FinalDistribution map[entity.Opinion]float64 `json:"final_distribution,omitempty"`

	KLDivergence    float64  `json:"kl_divergence"`
	Stability       string   `json:"stability"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Analysis builds the full theory-vs-observation report.
func (a *Analyzer) Analysis() Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := Report{
		Theoretical: a.Theoretical(),
		Current:     a.currentLocked(),
		Samples:     len(a.history),
	}
	if a.detectedAt != nil {
		t := *a.detectedAt
		r.StationaryAt = &t
		r.FinalDistribution = a.final
	}
	if r.Current != nil {
		r.KLDivergence = KLDivergence(r.Current, r.Theoretical.Distribution)
	}

	switch {
	case len(a.history) == 0:
		r.Stability = "no samples recorded"
	case a.detectedAt != nil:
		r.Stability = "stationary"
	case len(a.history) < stationarityWindow:
		r.Stability = "insufficient samples"
	default:
		r.Stability = "still drifting"
	}

	if r.KLDivergence > 0.1 {
		r.Recommendations = append(r.Recommendations,
			"high divergence between theory and observation; extend the simulation or revisit parameters")
	}
	if a.detectedAt != nil && *a.detectedAt <= 2*stationarityWindow {
		r.Recommendations = append(r.Recommendations,
			"distribution stationary very early; consider richer dynamics or a larger population")
	}
	if r.Stability == "still drifting" {
		r.Recommendations = append(r.Recommendations,
			"proportions still moving after the full window; let the run continue")
	}
	return r
}

// KLDivergence computes KL(p || q) over the union of opinion keys, using a
// small floor in place of zero probabilities. The result is >= 0 and is 0
// only when both distributions agree everywhere within the floor's
// resolution.
func KLDivergence(p, q map[entity.Opinion]float64) float64 {
	keys := make(map[entity.Opinion]bool, len(p)+len(q))
	for k := range p {
		keys[k] = true
	}
	for k := range q {
		keys[k] = true
	}

	sum := 0.0
	for k := range keys {
		pv := math.Max(p[k], klFloor)
		qv := math.Max(q[k], klFloor)
		sum += pv * math.Log(pv/qv)
	}
	if sum < 0 {
		return 0
	}
	return sum
}
