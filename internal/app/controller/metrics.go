package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rotationsTotal counts finished rotation cycles by result.
	rotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "immich_wallpaper_rotations_total",
		Help: "Number of rotation cycles by result",
	}, []string{"result"})

	// rotationDuration measures a cycle from selection to applied wallpaper.
	rotationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "immich_wallpaper_rotation_duration_seconds",
		Help:    "Duration of successful rotation cycles in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// retriesTotal counts failures that paused the rotation, by the stage
	// that failed: "auth" or "catalog".
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "immich_wallpaper_retries_total",
		Help: "Number of failed logins and catalog fetches that led to a retry",
	}, []string{"stage"})

	catalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "immich_wallpaper_catalog_size",
		Help: "Number of photos in the current catalog",
	})

	// schedulerState is 1 for the current state and 0 for all others.
	schedulerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "immich_wallpaper_state",
		Help: "Current state of the rotation scheduler",
	}, []string{"state"})

	lastChangeTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "immich_wallpaper_last_change_timestamp_seconds",
		Help: "Unix time of the last applied wallpaper",
	})

	prunedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "immich_wallpaper_cache_pruned_files_total",
		Help: "Number of cached previews removed from local storage",
	})
)

func recordState(s State) {
	for i, name := range stateNames {
		v := 0.0
		if State(i) == s {
			v = 1
		}
		schedulerState.WithLabelValues(name).Set(v)
	}
}
