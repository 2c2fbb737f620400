package dynamics

import (
	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/entity"
	"github.com/talgya/echochamber/internal/entropy"
	"github.com/talgya/echochamber/internal/stats"
)

// EdgeChange records one created or deleted person-group edge.
type EdgeChange struct {
	Person  entity.PersonID `json:"person"`
	Group   entity.GroupID  `json:"group"`
	Created bool            `json:"created"`
	Reason  string          `json:"reason,omitempty"`
}

// OpinionChange records one opinion flip.
type OpinionChange struct {
	Person entity.PersonID `json:"person"`
	From   entity.Opinion  `json:"from"`
	To     entity.Opinion  `json:"to"`
}

// TurnResult is what one completed turn hands to external observers.
// Statistics are computed only after all mutations are applied.
type TurnResult struct {
	Turn           int             `json:"turn"`
	EdgeChanges    []EdgeChange    `json:"edge_changes,omitempty"`
	OpinionChanges []OpinionChange `json:"opinion_changes,omitempty"`
	Stats          stats.Snapshot  `json:"stats"`
}

// turnContext is the mutable scratch state a model applies itself against.
// Its helpers keep the entity invariants and the change records in step.
type turnContext struct {
	pop  *entity.Population
	cfg  config.Config
	src  *entropy.Source
	turn int

	edges []EdgeChange
	flips []OpinionChange
}

// join creates an edge and marks it turn-touched.
func (tc *turnContext) join(pid entity.PersonID, gid entity.GroupID, reason string) {
	if !tc.pop.Join(pid, gid, tc.turn) {
		return
	}
	tc.pop.Person(pid).MarkChanged(gid)
	tc.edges = append(tc.edges, EdgeChange{Person: pid, Group: gid, Created: true, Reason: reason})
}

// leave deletes an edge and marks it turn-touched.
func (tc *turnContext) leave(pid entity.PersonID, gid entity.GroupID, reason string) {
	if !tc.pop.Leave(pid, gid, tc.turn) {
		return
	}
	tc.pop.Person(pid).MarkChanged(gid)
	tc.edges = append(tc.edges, EdgeChange{Person: pid, Group: gid, Created: false, Reason: reason})
}

// flip inverts a person's opinion, updating every affected group tally.
func (tc *turnContext) flip(pid entity.PersonID) {
	p := tc.pop.Person(pid)
	from := p.Opinion
	tc.pop.FlipOpinion(pid)
	tc.flips = append(tc.flips, OpinionChange{Person: pid, From: from, To: p.Opinion})
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
