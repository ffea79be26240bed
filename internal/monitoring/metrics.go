// Package monitoring exposes prometheus metrics for the pipeline.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics.
var (
	// ProbesTotal counts citation probes by platform and outcome.
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citegap_probes_total",
		Help: "Citation probes issued, by platform and outcome.",
	}, []string{"platform", "outcome"})

	// GapsUpserted counts gaps merged into the backlog.
	GapsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "citegap_gaps_upserted_total",
		Help: "Content gaps upserted by the analyzer.",
	})

	// ArticlesGenerated counts generation attempts by outcome.
	ArticlesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citegap_articles_generated_total",
		Help: "Article generations, by outcome.",
	}, []string{"outcome"})

	// CrosspostsTotal counts successful crossposts by channel.
	CrosspostsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citegap_crossposts_total",
		Help: "Successful crossposts, by channel.",
	}, []string{"channel"})

	// RunsTotal counts pipeline runs by final status.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citegap_pipeline_runs_total",
		Help: "Pipeline runs, by final status.",
	}, []string{"status"})

	// RunDuration observes pipeline run durations.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "citegap_pipeline_run_duration_seconds",
		Help:    "Pipeline run duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)
