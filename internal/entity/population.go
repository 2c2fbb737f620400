package entity

import "fmt"

// Person is an individual holding an opinion and a set of group memberships.
type Person struct {
	ID      PersonID `json:"id"`
	Opinion Opinion  `json:"opinion"`

	// Groups this person belongs to, in join order.
	Groups *IDSet `json:"-"`

	// Diagnostic history. Not consulted by the dynamics.
	OpinionLog  []Opinion         `json:"opinion_log,omitempty"`
	Connections []ConnectionEvent `json:"connections,omitempty"`

	// Groups touched during the current turn. Cleared at turn start;
	// prevents joining and immediately leaving the same group in one turn.
	changed map[GroupID]bool
}

// MarkChanged flags gid as touched this turn.
func (p *Person) MarkChanged(gid GroupID) {
	if p.changed == nil {
		p.changed = make(map[GroupID]bool)
	}
	p.changed[gid] = true
}

// ChangedThisTurn reports whether gid was touched this turn.
func (p *Person) ChangedThisTurn(gid GroupID) bool {
	return p.changed[gid]
}

// ClearChanged resets the turn-scoped marker.
func (p *Person) ClearChanged() {
	clear(p.changed)
}

// Degree returns the person's group-membership count.
func (p *Person) Degree() int {
	return p.Groups.Len()
}

// Group is a shared affiliation people connect through.
type Group struct {
	ID     GroupID `json:"id"`
	Weight float64 `json:"weight"`

	// Members in join order.
	Members *IDSet `json:"-"`

	// Opinion tally, maintained on every join/leave/flip.
	Tally Tally `json:"tally"`

	// Diagnostic history.
	MembershipLog []MembershipEvent     `json:"membership_log,omitempty"`
	Compositions  []CompositionSnapshot `json:"compositions,omitempty"`
}

// ProShare returns the fraction of members holding OpinionPro, 0 when empty.
func (g *Group) ProShare() float64 {
	n := g.Members.Len()
	if n == 0 {
		return 0
	}
	return float64(g.Tally.Pro) / float64(n)
}

// RecordComposition appends an opinion-composition snapshot.
func (g *Group) RecordComposition(turn int) {
	g.Compositions = append(g.Compositions, CompositionSnapshot{
		Turn:    turn,
		Members: g.Members.Len(),
		Pro:     g.Tally.Pro,
		Con:     g.Tally.Con,
	})
}

// Population holds the people and group arenas for one simulation run.
// IDs equal arena indexes.
type Population struct {
	People []*Person
	Groups []*Group
}

// NewPopulation allocates n people and m groups with empty membership.
// Opinions default to OpinionCon; callers assign real opinions before use.
func NewPopulation(n, m int) *Population {
	pop := &Population{
		People: make([]*Person, n),
		Groups: make([]*Group, m),
	}
	for i := range pop.People {
		pop.People[i] = &Person{
			ID:      PersonID(i),
			Opinion: OpinionCon,
			Groups:  NewIDSet(),
		}
	}
	for i := range pop.Groups {
		pop.Groups[i] = &Group{
			ID:      GroupID(i),
			Weight:  1.0,
			Members: NewIDSet(),
		}
	}
	return pop
}

// Person returns the person with the given ID.
func (pop *Population) Person(id PersonID) *Person {
	return pop.People[id]
}

// Group returns the group with the given ID.
func (pop *Population) Group(id GroupID) *Group {
	return pop.Groups[id]
}

// Join connects a person to a group, maintaining both sides and the tally.
// Returns false if the edge already exists.
func (pop *Population) Join(pid PersonID, gid GroupID, turn int) bool {
	p, g := pop.People[pid], pop.Groups[gid]
	if !p.Groups.Add(int(gid)) {
		return false
	}
	g.Members.Add(int(pid))
	if p.Opinion == OpinionPro {
		g.Tally.Pro++
	} else {
		g.Tally.Con++
	}
	p.Connections = append(p.Connections, ConnectionEvent{Turn: turn, Group: gid, Joined: true})
	g.MembershipLog = append(g.MembershipLog, MembershipEvent{Turn: turn, Person: pid, Joined: true})
	return true
}

// Leave disconnects a person from a group. Returns false if no edge exists.
func (pop *Population) Leave(pid PersonID, gid GroupID, turn int) bool {
	p, g := pop.People[pid], pop.Groups[gid]
	if !p.Groups.Remove(int(gid)) {
		return false
	}
	g.Members.Remove(int(pid))
	if p.Opinion == OpinionPro {
		g.Tally.Pro--
	} else {
		g.Tally.Con--
	}
	p.Connections = append(p.Connections, ConnectionEvent{Turn: turn, Group: gid, Joined: false})
	g.MembershipLog = append(g.MembershipLog, MembershipEvent{Turn: turn, Person: pid, Joined: false})
	return true
}

// FlipOpinion inverts a person's opinion and moves their tally entry in
// every group they belong to.
func (pop *Population) FlipOpinion(pid PersonID) {
	p := pop.People[pid]
	old := p.Opinion
	p.Opinion = old.Flipped()
	p.OpinionLog = append(p.OpinionLog, p.Opinion)
	for _, raw := range p.Groups.Values() {
		g := pop.Groups[raw]
		if old == OpinionPro {
			g.Tally.Pro--
			g.Tally.Con++
		} else {
			g.Tally.Con--
			g.Tally.Pro++
		}
	}
}

// TotalEdges returns the number of person-group edges.
func (pop *Population) TotalEdges() int {
	total := 0
	for _, p := range pop.People {
		total += p.Degree()
	}
	return total
}

// Validate scans the full relation and returns a list of invariant
// violations: broken bidirectional consistency, tally drift, or illegal
// opinion values. Empty means consistent.
func (pop *Population) Validate() []string {
	var issues []string

	for _, p := range pop.People {
		if !p.Opinion.Valid() {
			issues = append(issues, fmt.Sprintf("person %d has invalid opinion %d", p.ID, p.Opinion))
		}
		for _, raw := range p.Groups.Values() {
			if raw < 0 || raw >= len(pop.Groups) {
				issues = append(issues, fmt.Sprintf("person %d references unknown group %d", p.ID, raw))
				continue
			}
			if !pop.Groups[raw].Members.Contains(int(p.ID)) {
				issues = append(issues, fmt.Sprintf("person %d claims group %d but is not a member", p.ID, raw))
			}
		}
	}

	for _, g := range pop.Groups {
		pro, con := 0, 0
		for _, raw := range g.Members.Values() {
			if raw < 0 || raw >= len(pop.People) {
				issues = append(issues, fmt.Sprintf("group %d references unknown person %d", g.ID, raw))
				continue
			}
			member := pop.People[raw]
			if !member.Groups.Contains(int(g.ID)) {
				issues = append(issues, fmt.Sprintf("group %d lists person %d who does not claim it", g.ID, raw))
			}
			if member.Opinion == OpinionPro {
				pro++
			} else {
				con++
			}
		}
		if pro != g.Tally.Pro || con != g.Tally.Con {
			issues = append(issues, fmt.Sprintf("group %d tally %d/%d disagrees with member scan %d/%d",
				g.ID, g.Tally.Pro, g.Tally.Con, pro, con))
		}
	}

	return issues
}
