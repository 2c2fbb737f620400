// Package config defines simulation parameters and fail-fast validation.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Model selects the per-turn rule set.
type Model string

const (
	ModelSchellingEdge      Model = "schelling-edge"
	ModelClassicalSchelling Model = "classical-schelling"
	ModelVoterPairwise      Model = "voter-pairwise"
	ModelVoterGroup         Model = "voter-group"
	ModelCombined           Model = "combined"
	ModelSIREpidemic        Model = "sir-epidemic" // Placeholder, no rule set.
)

// GroupBased reports whether the model rewires group membership (and so
// participates in the homophily gate of the convergence check).
func (m Model) GroupBased() bool {
	switch m {
	case ModelSchellingEdge, ModelClassicalSchelling, ModelCombined:
		return true
	}
	return false
}

// WeightMode selects how initial group weights are drawn.
type WeightMode string

const (
	WeightsUniform WeightMode = "uniform" // All weights 1.0.
	// WeightsBounded draws each weight uniformly from [0.5, 2.5]. The
	// original called this mode "exponential"; the draw was always
	// bounded-uniform and is kept that way.
	WeightsBounded WeightMode = "bounded"
	// WeightsCorrelated samples a smooth noise field over the group index,
	// scaled to [0.5, 2.5], so neighboring groups get similar popularity.
	WeightsCorrelated WeightMode = "correlated"
)

// Config holds every recognized simulation option.
type Config struct {
	People int `json:"people" validate:"gt=0"`
	Groups int `json:"groups" validate:"gt=0"`

	// Lambda is the connection intensity of the initial bipartite graph:
	// each (person, group) pair connects with probability lambda*weight/m.
	Lambda float64 `json:"lambda" validate:"gt=0"`

	// C is the edge-creation/relocation rate used by the Schelling rules.
	C float64 `json:"c" validate:"gte=0"`

	// Gamma scales voter-model influence.
	Gamma float64 `json:"gamma" validate:"gte=0,lte=1"`

	// GSteepness sharpens the homophily response of the edge-leave
	// deformation function (and derives the relocation threshold).
	GSteepness float64 `json:"g_steepness" validate:"gte=0"`

	// InitialOpinionSplit is the probability a person starts with opinion +1.
	InitialOpinionSplit float64 `json:"initial_opinion_split" validate:"gte=0,lte=1"`

	GroupWeights WeightMode `json:"group_weights" validate:"oneof=uniform bounded correlated"`
	Model        Model      `json:"model" validate:"oneof=schelling-edge classical-schelling voter-pairwise voter-group combined sir-epidemic"`

	// ConvergenceThreshold is the variance cutoff on the rolling
	// convergence metric window.
	ConvergenceThreshold float64 `json:"convergence_threshold" validate:"gt=0"`

	MaxTurns int `json:"max_turns" validate:"gt=0"`

	// StatisticsInterval is the progress-log and snapshot cadence in turns.
	// 0 disables periodic logging.
	StatisticsInterval int `json:"statistics_interval" validate:"gte=0"`

	Seed int64 `json:"seed"`
}

// Default returns a runnable baseline configuration.
func Default() Config {
	return Config{
		People:               100,
		Groups:               5,
		Lambda:               2.0,
		C:                    1.0,
		Gamma:                0.5,
		GSteepness:           4.0,
		InitialOpinionSplit:  0.5,
		GroupWeights:         WeightsUniform,
		Model:                ModelSchellingEdge,
		ConvergenceThreshold: 0.0001,
		MaxTurns:             2000,
		StatisticsInterval:   100,
		Seed:                 42,
	}
}

// ValidationError carries the full list of configuration problems.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Issues, "; ")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every parameter and returns a *ValidationError listing
// all violations, or nil. No partial correction is attempted.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Issues: []string{err.Error()}}
	}

	issues := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return &ValidationError{Issues: issues}
}
