// Package metrics exposes the Prometheus metrics registered by the nbx
// packages. Metrics are defined next to the code that updates them (client,
// pagination, aggregate, cache, ratelimit) via promauto; this package only
// serves them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/netbox-inventory/pkg/logging"
)

// Registry is the default Prometheus registry every nbx metric is registered on.
var Registry = prometheus.DefaultRegisterer

// Server serves /metrics and /health while a command runs.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	done   chan error
	logger zerolog.Logger
}

// Handler returns the metrics mux.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	return mux
}

// Listen binds addr and starts serving in the background.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	s := &Server{
		srv:    &http.Server{Handler: Handler(), ReadHeaderTimeout: 5 * time.Second},
		ln:     ln,
		done:   make(chan error, 1),
		logger: logging.NewLogger("metrics"),
	}
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return s, nil
}

// Addr is the bound listener address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close shuts the server down, waiting for in-flight scrapes until ctx ends.
func (s *Server) Close(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	err := <-s.done
	s.logger.Info().Msg("Metrics server stopped")
	return err
}

// Metrics Documentation
//
// Requests (pkg/client):
//   - netbox_requests_total{endpoint, status} (Counter)
//   - netbox_request_duration_seconds{endpoint} (Histogram)
//   - netbox_errors_total{kind} (Counter)
//   - netbox_retries_total{error_class} (Counter)
//   - netbox_retry_backoff_seconds{error_class} (Histogram)
//   - netbox_retry_exhausted_total{error_class} (Counter)
//
// Pagination (pkg/pagination):
//   - netbox_pages_fetched_total (Counter)
//   - netbox_drains_total{outcome} (Counter)
//   - netbox_drain_records (Histogram)
//
// Aggregation (pkg/aggregate):
//   - netbox_fanout_branches_total{outcome} (Counter)
//   - netbox_fanout_duration_seconds (Histogram)
//   - netbox_resolves_total{outcome} (Counter)
//
// Lookup cache (pkg/cache):
//   - netbox_lookup_cache_hits_total, netbox_lookup_cache_misses_total
//   - netbox_lookup_cache_evictions_total, netbox_lookup_cache_entries
//   - netbox_lookup_cache_errors_total{operation}
//
// Throttling (pkg/ratelimit):
//   - netbox_rate_limit_remaining (Gauge)
//   - netbox_rate_limit_blocks_total, netbox_rate_limit_throttles_total
//
// Example Prometheus Queries:
//
//	# Lookup cache hit rate
//	sum(rate(netbox_lookup_cache_hits_total[5m])) /
//	(sum(rate(netbox_lookup_cache_hits_total[5m])) + sum(rate(netbox_lookup_cache_misses_total[5m])))
//
//	# P95 request latency
//	histogram_quantile(0.95, rate(netbox_request_duration_seconds_bucket[5m]))
