package planners

import (
	"log/slog"
	"math/rand/v2"
)

// Shuffle visits every index of the catalog once, in random order, before
// repeating any. A new permutation is drawn when it is exhausted or when the
// catalog size changes.
type Shuffle struct {
	order []int
	pos   int
}

func (s *Shuffle) Name() string { return "shuffle" }

// NextIndex implements Planner.
func (s *Shuffle) NextIndex(current, n int) int {
	if len(s.order) != n {
		slog.Debug("catalog size changed, reshuffling", "size", n)
		s.shuffle(n, current)
	} else if s.pos >= len(s.order) {
		s.shuffle(n, s.order[len(s.order)-1])
	}
	next := s.order[s.pos]
	s.pos++
	return next
}

// shuffle draws a new permutation of [0, n). When possible, last does not
// come first so the same photo is not shown twice in a row.
func (s *Shuffle) shuffle(n, last int) {
	s.order = rand.Perm(n)
	s.pos = 0
	if n > 1 && s.order[0] == last {
		s.order[0], s.order[n-1] = s.order[n-1], s.order[0]
	}
}
