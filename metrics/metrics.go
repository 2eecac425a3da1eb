// metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rowsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bostondata_rows_fetched_total",
		Help: "Raw records fetched from the portal, by dataset.",
	}, []string{"dataset"})

	rowsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bostondata_rows_loaded_total",
		Help: "Canonical rows committed to the database, by dataset.",
	}, []string{"dataset"})

	rowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bostondata_rows_dropped_total",
		Help: "Rows dropped during normalization, by dataset and reason.",
	}, []string{"dataset", "reason"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bostondata_etl_runs_total",
		Help: "ETL runs, by dataset and final state.",
	}, []string{"dataset", "state"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bostondata_etl_run_duration_seconds",
		Help:    "Wall-clock duration of ETL runs, by dataset.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"dataset"})
)

func AddFetched(dataset string, n int) {
	rowsFetched.WithLabelValues(dataset).Add(float64(n))
}

func AddLoaded(dataset string, n int) {
	rowsLoaded.WithLabelValues(dataset).Add(float64(n))
}

func AddDropped(dataset, reason string, n int) {
	if n > 0 {
		rowsDropped.WithLabelValues(dataset, reason).Add(float64(n))
	}
}

func ObserveRun(dataset, state string, elapsed time.Duration) {
	runsTotal.WithLabelValues(dataset, state).Inc()
	runDuration.WithLabelValues(dataset).Observe(elapsed.Seconds())
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
