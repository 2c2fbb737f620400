// Package stats derives per-turn aggregate measures from entity state.
// Compute is a pure function: it reads the population and a previous
// snapshot, mutates nothing, and every zero-denominator ratio defaults to 0.
package stats

import (
	"math"

	"github.com/talgya/echochamber/internal/entity"
)

// GroupStat is the per-group slice of a snapshot.
type GroupStat struct {
	ID       entity.GroupID `json:"id"`
	Members  int            `json:"members"`
	Pro      int            `json:"pro"`
	Con      int            `json:"con"`
	ProShare float64        `json:"pro_share"`
	ConShare float64        `json:"con_share"`

	// Diversity is the Gini-Simpson index 1 - p+^2 - p-^2 over the
	// two-opinion distribution; 0 for a uniform group, 0.5 at an even split.
	Diversity float64 `json:"diversity"`
}

// Snapshot is the aggregate view of one turn, taken after all mutations.
type Snapshot struct {
	Turn       int `json:"turn"`
	TotalEdges int `json:"total_edges"`
	Pro        int `json:"pro"`
	Con        int `json:"con"`

	Groups []GroupStat `json:"groups"`

	// AvgDegree is the mean group-membership count per person.
	AvgDegree float64 `json:"avg_degree"`

	// Density is totalNeighborDegree / (n*(n-1)) over the intersection
	// graph (two people are neighbors if they share a group).
	Density float64 `json:"density"`

	// SegregationIndex is the mean same-opinion neighbor fraction over all
	// people with at least one neighbor. 1.0 is maximal homophily.
	SegregationIndex float64 `json:"segregation_index"`

	// ConvergenceMetric combines opinion, structural, and homophily change
	// versus the previous turn. Lower is more stable.
	ConvergenceMetric float64 `json:"convergence_metric"`
}

// OpinionCounts returns the opinion distribution as a map.
func (s Snapshot) OpinionCounts() map[entity.Opinion]int {
	return map[entity.Opinion]int{
		entity.OpinionPro: s.Pro,
		entity.OpinionCon: s.Con,
	}
}

// ProShare returns the population fraction holding opinion +1, 0 when empty.
func (s Snapshot) ProShare() float64 {
	n := s.Pro + s.Con
	if n == 0 {
		return 0
	}
	return float64(s.Pro) / float64(n)
}

// Compute builds the snapshot for the current state. prev may be nil, in
// which case the convergence metric is 0.
func Compute(pop *entity.Population, turn int, prev *Snapshot) Snapshot {
	snap := Snapshot{Turn: turn}

	for _, p := range pop.People {
		snap.TotalEdges += p.Degree()
		if p.Opinion == entity.OpinionPro {
			snap.Pro++
		} else {
			snap.Con++
		}
	}

	snap.Groups = make([]GroupStat, len(pop.Groups))
	for i, g := range pop.Groups {
		snap.Groups[i] = groupStat(g)
	}

	n := len(pop.People)
	if n > 0 {
		snap.AvgDegree = float64(snap.TotalEdges) / float64(n)
	}

	totalDegree, segSum, segCount := neighborPass(pop)
	if n > 1 {
		snap.Density = float64(totalDegree) / float64(n*(n-1))
	}
	if segCount > 0 {
		snap.SegregationIndex = segSum / float64(segCount)
	}

	if prev != nil {
		snap.ConvergenceMetric = convergenceMetric(snap, *prev)
	}
	return snap
}

func groupStat(g *entity.Group) GroupStat {
	st := GroupStat{
		ID:      g.ID,
		Members: g.Members.Len(),
		Pro:     g.Tally.Pro,
		Con:     g.Tally.Con,
	}
	if st.Members > 0 {
		st.ProShare = float64(st.Pro) / float64(st.Members)
		st.ConShare = float64(st.Con) / float64(st.Members)
		st.Diversity = 1 - st.ProShare*st.ProShare - st.ConShare*st.ConShare
	}
	return st
}

// neighborPass walks the intersection graph once: for every person, the set
// of distinct co-members across all their groups.
func neighborPass(pop *entity.Population) (totalDegree int, segSum float64, segCount int) {
	for _, p := range pop.People {
		seen := make(map[int]bool)
		same, total := 0, 0
		for _, gid := range p.Groups.Values() {
			for _, raw := range pop.Groups[gid].Members.Values() {
				if raw == int(p.ID) || seen[raw] {
					continue
				}
				seen[raw] = true
				total++
				if pop.People[raw].Opinion == p.Opinion {
					same++
				}
			}
		}
		totalDegree += total
		if total > 0 {
			segSum += float64(same) / float64(total)
			segCount++
		}
	}
	return totalDegree, segSum, segCount
}

// convergenceMetric is |Δ pro-share| + |Δ edges|/max(cur,prev,1) + |Δ segregation|.
func convergenceMetric(cur, prev Snapshot) float64 {
	edgeDen := float64(cur.TotalEdges)
	if float64(prev.TotalEdges) > edgeDen {
		edgeDen = float64(prev.TotalEdges)
	}
	if edgeDen < 1 {
		edgeDen = 1
	}
	return math.Abs(cur.ProShare()-prev.ProShare()) +
		math.Abs(float64(cur.TotalEdges-prev.TotalEdges))/edgeDen +
		math.Abs(cur.SegregationIndex-prev.SegregationIndex)
}
