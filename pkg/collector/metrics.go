package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "collector_pages_fetched",
	Help: "The number of page queries executed",
}, []string{"table"})

var rowsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "collector_rows_collected",
	Help: "The number of rows collected",
}, []string{"table"})

var runsFlushed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "collector_runs_flushed",
	Help: "The number of collection runs that saved rows and advanced the pointer",
}, []string{"table"})

var runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "collector_run_duration_seconds",
	Help:    "The duration of a full collection run",
	Buckets: prometheus.DefBuckets,
}, []string{"table"})

var batchSizeHist = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "collector_batch_size",
	Help:    "The size of each collected batch of rows",
	Buckets: prometheus.ExponentialBuckets(1, 2, 12),
}, []string{"table"})
