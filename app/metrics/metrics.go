// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventcomb_fetch_attempts_total",
			Help: "Total number of platform fetch attempts",
		},
		[]string{"platform"},
	)

	FetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventcomb_fetch_failures_total",
			Help: "Total number of failed platform fetches",
		},
		[]string{"platform"},
	)

	FetchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventcomb_fetch_duration_seconds",
			Help:    "Duration of platform fetches including queue wait",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	EventsScrapedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventcomb_events_scraped_total",
			Help: "Total number of events scraped per platform",
		},
		[]string{"platform"},
	)

	ValidationRejectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventcomb_validation_rejects_total",
			Help: "Total number of candidates dropped by validation",
		},
	)

	ValidationWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventcomb_validation_warnings_total",
			Help: "Total number of validation warnings on retained candidates",
		},
	)

	DuplicatesRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventcomb_duplicates_removed_total",
			Help: "Total number of duplicate candidates removed",
		},
	)

	HarvestRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventcomb_harvest_runs_total",
			Help: "Total number of aggregation runs by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		FetchAttemptsTotal,
		FetchFailuresTotal,
		FetchDurationSeconds,
		EventsScrapedTotal,
		ValidationRejectsTotal,
		ValidationWarningsTotal,
		DuplicatesRemovedTotal,
		HarvestRunsTotal,
	)
}
