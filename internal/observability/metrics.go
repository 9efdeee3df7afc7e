package observability

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

var (
	// PagesTotal counts processed pages by final status
	PagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nominas_pages_total",
			Help: "Total number of payslip pages processed",
		},
		[]string{"status"},
	)

	// PageQuality counts pages by header quality (complete, partial, missing)
	PageQuality = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nominas_page_quality_total",
			Help: "Payslip pages by identity field quality",
		},
		[]string{"quality"},
	)

	// PageDuration tracks per-page processing time
	PageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nominas_page_duration_seconds",
			Help:    "Payslip page processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"verified"},
	)

	// CacheHits counts pages answered from the page cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nominas_page_cache_hits_total",
			Help: "Pages served from the in-memory result cache",
		},
	)

	// DocumentsTotal counts processed documents by outcome (ok, error)
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nominas_documents_total",
			Help: "Total number of documents processed",
		},
		[]string{"outcome"},
	)

	// ActiveDocuments tracks documents currently in flight
	ActiveDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nominas_active_documents",
			Help: "Number of documents being processed",
		},
	)
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics.listen", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
