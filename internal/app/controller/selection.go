package controller

import (
	"immich-wallpaper/internal/app/controller/planners"
	"immich-wallpaper/internal/immich"
)

// SelectNext returns the asset at current, which is shown this cycle, and the
// index for the following cycle as chosen by the planner. The catalog must
// not be empty and current must be within it.
func SelectNext(catalog immich.Catalog, current int, planner planners.Planner) (immich.AssetMetadata, int) {
	return catalog[current], planner.NextIndex(current, len(catalog))
}

// validIndex returns index if it is within the catalog, otherwise 0.
func validIndex(index int, catalog immich.Catalog) (int, bool) {
	if index < 0 || index >= len(catalog) {
		return 0, false
	}
	return index, true
}
