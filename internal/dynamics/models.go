package dynamics

import (
	"fmt"

	"github.com/talgya/echochamber/internal/config"
)

// model is one per-turn rule set. Exactly one applies per turn; the model
// type is immutable mid-run except via explicit reconfiguration.
type model interface {
	name() string
	apply(tc *turnContext)
}

func modelFor(m config.Model) (model, error) {
	switch m {
	case config.ModelSchellingEdge:
		return schellingEdge{}, nil
	case config.ModelClassicalSchelling:
		return classicalSchelling{}, nil
	case config.ModelVoterPairwise:
		return voter{pairwise: true}, nil
	case config.ModelVoterGroup:
		return voter{pairwise: false}, nil
	case config.ModelCombined:
		return combined{}, nil
	case config.ModelSIREpidemic:
		return sirStub{}, nil
	}
	return nil, fmt.Errorf("unknown model type %q", m)
}

// combined applies Schelling-edge rewiring, then group-aggregate voter
// influence, within the same turn, in that order.
type combined struct{}

func (combined) name() string { return string(config.ModelCombined) }

func (combined) apply(tc *turnContext) {
	schellingEdge{}.apply(tc)
	voter{pairwise: false}.apply(tc)
}

// sirStub is the configured-but-unimplemented epidemic variant. Turns under
// it are no-op transitions.
type sirStub struct{}

func (sirStub) name() string { return string(config.ModelSIREpidemic) }

func (sirStub) apply(tc *turnContext) {}
