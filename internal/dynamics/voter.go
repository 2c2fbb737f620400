package dynamics

import (
	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/entity"
)

// voter applies social-influence opinion flips. All flip probabilities are
// computed from the pre-turn state and drawn in one synchronous batch (one
// draw per person, enumeration order); flips and their tally updates are
// applied afterwards, so no flip influences another within the same turn
// and the outcome is independent of iteration order.
type voter struct {
	// pairwise bases influence on distinct intersection-graph neighbors;
	// otherwise co-members are aggregated across groups without dedup.
	pairwise bool
}

func (v voter) name() string {
	if v.pairwise {
		return string(config.ModelVoterPairwise)
	}
	return string(config.ModelVoterGroup)
}

func (v voter) apply(tc *turnContext) {
	var decided []entity.PersonID
	for _, p := range tc.pop.People {
		var disagree, total int
		if v.pairwise {
			disagree, total = neighborDisagreement(tc.pop, p)
		} else {
			disagree, total = coMemberDisagreement(tc.pop, p)
		}
		prob := 0.0
		if total > 0 {
			prob = tc.cfg.Gamma * float64(disagree) / float64(total)
		}
		if tc.src.Chance(prob) {
			decided = append(decided, p.ID)
		}
	}

	for _, pid := range decided {
		tc.flip(pid)
	}
}

// neighborDisagreement counts distinct people sharing at least one group
// with p, and how many of them hold the opposite opinion.
func neighborDisagreement(pop *entity.Population, p *entity.Person) (disagree, total int) {
	seen := make(map[int]bool)
	for _, gid := range p.Groups.Values() {
		for _, raw := range pop.Groups[gid].Members.Values() {
			if raw == int(p.ID) || seen[raw] {
				continue
			}
			seen[raw] = true
			total++
			if pop.People[raw].Opinion != p.Opinion {
				disagree++
			}
		}
	}
	return disagree, total
}

// coMemberDisagreement aggregates opposite-opinion exposure over p's groups.
// People sharing several groups with p count once per shared group.
func coMemberDisagreement(pop *entity.Population, p *entity.Person) (disagree, total int) {
	for _, gid := range p.Groups.Values() {
		g := pop.Groups[gid]
		others := g.Members.Len() - 1
		if others <= 0 {
			continue
		}
		total += others
		disagree += g.Tally.Count(p.Opinion.Flipped())
	}
	return disagree, total
}
