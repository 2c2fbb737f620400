// Package entity provides the person/group data model for the
// intersection-graph simulation: integer-indexed arenas with membership
// stored as mutual ordered index sets.
package entity

// PersonID indexes a person in the population arena.
type PersonID int

// GroupID indexes a group in the population arena.
type GroupID int

// Opinion is a signed binary opinion value.
type Opinion int8

const (
	OpinionPro Opinion = 1
	OpinionCon Opinion = -1
)

// Valid reports whether o is one of the two legal opinion values.
func (o Opinion) Valid() bool {
	return o == OpinionPro || o == OpinionCon
}

// Flipped returns the opposite opinion.
func (o Opinion) Flipped() Opinion {
	return -o
}

func (o Opinion) String() string {
	if o == OpinionPro {
		return "+1"
	}
	return "-1"
}

// ConnectionEvent logs one membership change for a person. Diagnostics only.
type ConnectionEvent struct {
	Turn   int     `json:"turn"`
	Group  GroupID `json:"group"`
	Joined bool    `json:"joined"`
}

// MembershipEvent logs one membership change for a group. Diagnostics only.
type MembershipEvent struct {
	Turn   int      `json:"turn"`
	Person PersonID `json:"person"`
	Joined bool     `json:"joined"`
}

// CompositionSnapshot is a periodic record of a group's opinion makeup.
type CompositionSnapshot struct {
	Turn    int `json:"turn"`
	Members int `json:"members"`
	Pro     int `json:"pro"`
	Con     int `json:"con"`
}

// Tally counts group members by opinion. Must always agree with a scan of
// the member set.
type Tally struct {
	Pro int `json:"pro"`
	Con int `json:"con"`
}

// Count returns the tally entry for the given opinion.
func (t Tally) Count(o Opinion) int {
	if o == OpinionPro {
		return t.Pro
	}
	return t.Con
}

// Total returns the number of tallied members.
func (t Tally) Total() int {
	return t.Pro + t.Con
}
