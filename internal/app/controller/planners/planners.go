// Package planners decides which catalog index is shown after the current
// one.
package planners

import (
	"fmt"
	"slices"
	"strings"
)

// Planner picks the index of the asset for the following rotation cycle.
// NextIndex is only called with n > 0 and must return a value in [0, n).
type Planner interface {
	Name() string
	NextIndex(current, n int) int
}

// PlanAlgorithm is a concrete object that embeds a Planner interface. This
// struct allows us to take advantage of custom TOML-decoding into a Planner
// object based on a name. See [PlanAlgorithm.UnmarshalText].
type PlanAlgorithm struct {
	Planner
}

// DefaultPlanAlgorithm is used when no plan-algorithm is configured.
const DefaultPlanAlgorithm = "random"

// planAlgorithms is the LUT for all the Planner constructors and their names.
// Planners may keep state, so every decode gets a fresh one.
var planAlgorithms = map[string]func() Planner{
	"random":     func() Planner { return Random{} },
	"sequential": func() Planner { return Sequential{} },
	"shuffle":    func() Planner { return &Shuffle{} },
}

// New returns the planner registered under name.
func New(name string) (PlanAlgorithm, error) {
	var p PlanAlgorithm
	err := p.UnmarshalText([]byte(name))
	return p, err
}

// Get returns the configured planner, or the default one if none is set.
func (p PlanAlgorithm) Get() Planner {
	if p.Planner == nil {
		return planAlgorithms[DefaultPlanAlgorithm]()
	}
	return p.Planner
}

// String returns the name of the configured planner.
func (p PlanAlgorithm) String() string {
	return p.Get().Name()
}

// UnmarshalText implements toml.TextUnmarshaler.
func (p *PlanAlgorithm) UnmarshalText(text []byte) error {
	newPlanner, ok := planAlgorithms[strings.ToLower(strings.TrimSpace(string(text)))]
	if ok {
		p.Planner = newPlanner()
		return nil
	}
	var validAlgos []string
	for key := range planAlgorithms {
		validAlgos = append(validAlgos, key)
	}
	slices.Sort(validAlgos)
	return fmt.Errorf(
		"unsupported plan algorithm %q, expected one of %v",
		string(text), validAlgos,
	)
}

// MarshalText implements encoding.TextMarshaler.
func (p PlanAlgorithm) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
