package transcode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	conversionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenbin_conversions_total",
		Help: "Total number of playback conversions started",
	})

	conversionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenbin_conversion_failures_total",
		Help: "Total number of playback conversions that failed",
	})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenbin_conversion_cache_hits_total",
		Help: "Total number of playback requests served from a cached conversion",
	})

	conversionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "screenbin_conversion_duration_seconds",
		Help:    "Duration of successful playback conversions in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
)
