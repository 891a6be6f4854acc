package planners

// Sequential walks the catalog in the order the server returned it, wrapping
// around at the end.
type Sequential struct{}

func (Sequential) Name() string { return "sequential" }

// NextIndex implements Planner.
func (Sequential) NextIndex(current, n int) int {
	if current < 0 {
		return 0
	}
	return (current + 1) % n
}
