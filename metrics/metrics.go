package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// MetricsServer serves the store metrics over HTTP.
type MetricsServer struct {
	srv      *http.Server
	registry *prometheus.Registry

	operations    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	valuesFetched *prometheus.CounterVec
}

// New creates the metrics collectors under namespace and a server for addr.
// The server is not started; an empty addr is fine when metrics are only
// collected, e.g. in tests.
func New(namespace, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()

	m := &MetricsServer{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Store operations by backend, operation and outcome.",
		}, []string{"backend", "op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Store operation latency by backend and operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 9),
		}, []string{"backend", "op"}),
		valuesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_values_fetched_total",
			Help:      "Values yielded by fetch, by backend.",
		}, []string{"backend"}),
	}

	for _, c := range []prometheus.Collector{
		m.operations,
		m.latency,
		m.valuesFetched,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	m.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return m, nil
}

// Handler returns the /metrics handler for the private registry.
func (m *MetricsServer) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry holding the store collectors.
func (m *MetricsServer) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

func (m *MetricsServer) observe(backend, op string, start time.Time, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.operations.WithLabelValues(backend, op, outcome).Inc()
	m.latency.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
