// Package graph builds the initial bipartite person-group population.
// Connection is a thinned-Bernoulli approximation of a Poisson random
// intersection graph: every pair connects independently with probability
// lambda * weight / m, so expected total edges ≈ n * lambda (weight-adjusted).
package graph

import (
	"fmt"
	"log/slog"
	"strings"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/entity"
	"github.com/talgya/echochamber/internal/entropy"
)

// weightNoiseScale spaces group indexes along the noise field so adjacent
// groups stay correlated without collapsing to one value.
const weightNoiseScale = 0.15

// ValidationError reports structural inconsistencies found after
// construction. It is fatal: no partial population is returned alongside it.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "graph validation failed: " + strings.Join(e.Issues, "; ")
}

// Build creates the initial population: n people with random opinions,
// m weighted groups, and independent random edges. The configuration is
// validated first and the finished structure is re-validated before being
// handed back.
func Build(cfg config.Config, src *entropy.Source) (*entity.Population, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	pop := entity.NewPopulation(cfg.People, cfg.Groups)

	// Opinions first, so the tallies maintained by Join are correct.
	for _, p := range pop.People {
		if src.Chance(cfg.InitialOpinionSplit) {
			p.Opinion = entity.OpinionPro
		} else {
			p.Opinion = entity.OpinionCon
		}
		p.OpinionLog = append(p.OpinionLog, p.Opinion)
	}

	assignWeights(pop, cfg, src)

	m := float64(cfg.Groups)
	for _, p := range pop.People {
		for _, g := range pop.Groups {
			if src.Chance(clamp01(cfg.Lambda * g.Weight / m)) {
				pop.Join(p.ID, g.ID, 0)
			}
		}
	}

	if err := validate(pop, cfg); err != nil {
		return nil, err
	}

	// Non-fatal diagnostics: isolated people and empty groups are legal.
	isolated, empty := 0, 0
	for _, p := range pop.People {
		if p.Degree() == 0 {
			isolated++
		}
	}
	for _, g := range pop.Groups {
		if g.Members.Len() == 0 {
			empty++
		}
	}
	if isolated > 0 {
		slog.Warn("people with no group membership", "count", isolated)
	}
	if empty > 0 {
		slog.Warn("groups with no members", "count", empty)
	}

	slog.Info("graph built",
		"people", cfg.People,
		"groups", cfg.Groups,
		"edges", pop.TotalEdges(),
		"weights", cfg.GroupWeights,
	)
	return pop, nil
}

func assignWeights(pop *entity.Population, cfg config.Config, src *entropy.Source) {
	switch cfg.GroupWeights {
	case config.WeightsBounded:
		for _, g := range pop.Groups {
			g.Weight = 0.5 + 2.0*src.Float()
		}
	case config.WeightsCorrelated:
		noise := opensimplex.NewNormalized(cfg.Seed)
		for _, g := range pop.Groups {
			g.Weight = 0.5 + 2.0*noise.Eval2(float64(g.ID)*weightNoiseScale, 0)
		}
	default:
		// WeightsUniform: NewPopulation already set 1.0.
	}
}

func validate(pop *entity.Population, cfg config.Config) error {
	var issues []string
	if len(pop.People) != cfg.People {
		issues = append(issues, fmt.Sprintf("person count %d does not match configured %d", len(pop.People), cfg.People))
	}
	if len(pop.Groups) != cfg.Groups {
		issues = append(issues, fmt.Sprintf("group count %d does not match configured %d", len(pop.Groups), cfg.Groups))
	}
	issues = append(issues, pop.Validate()...)
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
