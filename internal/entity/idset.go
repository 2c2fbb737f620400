package entity

// IDSet is an insertion-ordered set of integer IDs. Enumeration order is
// deterministic (insertion order, preserved across removals), which keeps
// the per-turn draw order reproducible under a fixed seed.
type IDSet struct {
	order []int
	pos   map[int]int
}

// NewIDSet creates an empty set.
func NewIDSet() *IDSet {
	return &IDSet{pos: make(map[int]int)}
}

// Add inserts id. Returns false if it was already present.
func (s *IDSet) Add(id int) bool {
	if _, ok := s.pos[id]; ok {
		return false
	}
	s.pos[id] = len(s.order)
	s.order = append(s.order, id)
	return true
}

// Remove deletes id, preserving the order of the remaining elements.
// Returns false if it was not present.
func (s *IDSet) Remove(id int) bool {
	i, ok := s.pos[id]
	if !ok {
		return false
	}
	s.order = append(s.order[:i], s.order[i+1:]...)
	delete(s.pos, id)
	for j := i; j < len(s.order); j++ {
		s.pos[s.order[j]] = j
	}
	return true
}

// Contains reports whether id is in the set.
func (s *IDSet) Contains(id int) bool {
	_, ok := s.pos[id]
	return ok
}

// Len returns the element count.
func (s *IDSet) Len() int {
	return len(s.order)
}

// Values returns the elements in insertion order. The slice is a copy, safe
// to iterate while the set is being mutated.
func (s *IDSet) Values() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}
