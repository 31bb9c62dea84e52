package bq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "bq_query_duration_seconds",
	Help:    "The duration of time it takes to run a query and read its results",
	Buckets: prometheus.DefBuckets,
})
