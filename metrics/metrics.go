// Package metrics exposes the server core's counters and an optional
// Prometheus-format metrics sidecar.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// Counters incremented by the server core.
var (
	ConnectionsAccepted = vmetrics.NewCounter("swifter_connections_accepted_total")
	RequestsServed      = vmetrics.NewCounter("swifter_requests_served_total")
	ResponseWriteErrors = vmetrics.NewCounter("swifter_response_write_errors_total")
	SessionHandoffs     = vmetrics.NewCounter("swifter_session_handoffs_total")
)

// MetricsServer serves the process metrics on a dedicated address so the
// embeddable core never has to route scrapes itself.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given listen address. The name is
// used for the build-info gauge so dashboards can tell deployments apart.
func New(name, addr string) (*MetricsServer, error) {
	vmetrics.GetOrCreateGauge(fmt.Sprintf("%s_up", name), func() float64 { return 1 })

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving scrapes until Shutdown or failure.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
