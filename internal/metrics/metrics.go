package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes used as the status label.
const (
	StatusOK         = "ok"
	StatusParseError = "parse_error"
	StatusError      = "error"
)

var (
	// QueriesTotal counts executed queries by outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docgraph_queries_total",
			Help: "Total number of queries executed",
		},
		[]string{"status"},
	)

	// QueryDuration measures parse plus execution time.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docgraph_query_duration_seconds",
			Help:    "Duration of query parsing and execution in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// Blocks tracks the block count of the current graph snapshot.
	Blocks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docgraph_blocks",
			Help: "Number of spec blocks in the current graph",
		},
	)

	// IndexDuration measures a full discover-extract-build pass.
	IndexDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docgraph_index_duration_seconds",
			Help:    "Duration of graph (re)indexing in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// ObserveQuery records one query.
func ObserveQuery(status string, elapsed time.Duration) {
	QueriesTotal.WithLabelValues(status).Inc()
	QueryDuration.Observe(elapsed.Seconds())
}

// ObserveIndex records one indexing pass and the resulting block count.
func ObserveIndex(blocks int, elapsed time.Duration) {
	Blocks.Set(float64(blocks))
	IndexDuration.Observe(elapsed.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics.listen", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
