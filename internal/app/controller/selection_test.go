package controller_test

import (
	"fmt"
	"testing"

	"immich-wallpaper/internal/app/controller"
	"immich-wallpaper/internal/app/controller/planners"
	"immich-wallpaper/internal/immich"
	"immich-wallpaper/internal/immich/immichtest"
)

func catalogOf(n int) immich.Catalog {
	catalog := make(immich.Catalog, n)
	for i := range catalog {
		catalog[i] = immichtest.Image(fmt.Sprintf("asset-%d", i))
	}
	return catalog
}

func TestSelectNext(t *testing.T) {
	for _, name := range []string{"random", "sequential", "shuffle"} {
		t.Run(name, func(t *testing.T) {
			plan, err := planners.New(name)
			if err != nil {
				t.Fatal(err)
			}
			for n := 1; n <= 8; n++ {
				catalog := catalogOf(n)
				for current := range n {
					md, next := controller.SelectNext(catalog, current, plan.Get())
					if md.ID != catalog[current].ID {
						t.Fatalf("expected asset %q at index %d, got %q", catalog[current].ID, current, md.ID)
					}
					if next < 0 || next >= n {
						t.Fatalf("next index %d out of range [0, %d)", next, n)
					}
				}
			}
		})
	}
}
