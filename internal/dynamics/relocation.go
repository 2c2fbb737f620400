package dynamics

import (
	"github.com/talgya/echochamber/internal/config"
	"github.com/talgya/echochamber/internal/entity"
)

// reasonRelocation tags the linked leave/join pair of one relocation.
const reasonRelocation = "relocation"

// classicalSchelling is the capacity-free relocation variant: an unhappy
// person abandons a group for whichever group would make them happiest,
// as one atomic leave+join.
type classicalSchelling struct{}

func (classicalSchelling) name() string { return string(config.ModelClassicalSchelling) }

func (classicalSchelling) apply(tc *turnContext) {
	moveP := clamp01(tc.cfg.C / float64(len(tc.pop.Groups)))
	threshold := happinessThreshold(tc.cfg.GSteepness)

	for _, p := range tc.pop.People {
		// Snapshot the membership list: relocations splice it mid-loop.
		for _, raw := range p.Groups.Values() {
			gid := entity.GroupID(raw)
			if p.ChangedThisTurn(gid) {
				continue
			}
			g := tc.pop.Group(gid)
			if happinessIn(p, g) >= threshold {
				continue
			}
			if !tc.src.Chance(moveP) {
				continue
			}

			best := bestDestination(tc.pop, p)
			// No move when the best option is a group already held:
			// Join would no-op and leave a dangling deletion.
			if best == nil || p.Groups.Contains(int(best.ID)) {
				continue
			}
			tc.leave(p.ID, gid, reasonRelocation)
			tc.join(p.ID, best.ID, reasonRelocation)
		}
	}
}

// happinessThreshold derives the happy cutoff from the steepness parameter:
// s/(s+2), i.e. 0.5 at s=2 and approaching 1 as the homophily response
// sharpens.
func happinessThreshold(steepness float64) float64 {
	return steepness / (steepness + 2)
}

// happinessIn is the same-opinion fraction of co-members, excluding self.
// A person alone in a group scores 0.
func happinessIn(p *entity.Person, g *entity.Group) float64 {
	total := g.Members.Len() - 1
	if total <= 0 {
		return 0
	}
	same := g.Tally.Count(p.Opinion) - 1
	return float64(same) / float64(total)
}

// prospectiveHappiness scores the group as if the person had just joined it.
// For groups the person already belongs to this equals happinessIn.
func prospectiveHappiness(p *entity.Person, g *entity.Group) float64 {
	if g.Members.Contains(int(p.ID)) {
		return happinessIn(p, g)
	}
	total := g.Members.Len()
	if total == 0 {
		return 0
	}
	return float64(g.Tally.Count(p.Opinion)) / float64(total)
}

// bestDestination scans all groups in enumeration order and returns the
// first one reaching the maximum prospective happiness.
func bestDestination(pop *entity.Population, p *entity.Person) *entity.Group {
	var best *entity.Group
	bestScore := -1.0
	for _, g := range pop.Groups {
		if score := prospectiveHappiness(p, g); score > bestScore {
			best = g
			bestScore = score
		}
	}
	return best
}
