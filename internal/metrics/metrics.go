package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satchel_fetch_requests_total",
			Help: "Total number of bounded download attempts by outcome",
		},
		[]string{"outcome"},
	)

	FetchBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "satchel_fetch_bytes_total",
			Help: "Total bytes streamed to local storage across all downloads",
		},
	)

	FragmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satchel_fragments_total",
			Help: "Content fragments produced, by source kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "satchel_generation_duration_seconds",
			Help:    "Duration of generation collaborator calls in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"purpose"},
	)

	TranscriptRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satchel_transcript_requests_total",
			Help: "Transcript collaborator calls by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordFetch updates download counters. outcome is "ok" or a failure kind.
func RecordFetch(outcome string, bytes int64) {
	FetchRequestsTotal.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		FetchBytesTotal.Add(float64(bytes))
	}
}

// RecordFragment counts one produced fragment.
func RecordFragment(kind string, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	FragmentsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordGeneration observes one generation collaborator call.
func RecordGeneration(purpose string, d time.Duration) {
	GenerationDuration.WithLabelValues(purpose).Observe(d.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
