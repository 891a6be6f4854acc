package planners

import "math/rand/v2"

// Random picks a uniformly random index. Repeats, including the current
// index, are possible.
type Random struct{}

func (Random) Name() string { return "random" }

// NextIndex implements Planner.
func (Random) NextIndex(_, n int) int {
	return rand.IntN(n)
}
