// Package metrics exposes the server's Prometheus counters/gauges and
// the /metrics HTTP handler. Nothing here is reachable from the RESP
// wire; it is pure observability bolted alongside the listener, in the
// style of the corpus's websocket and HTTP services.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups the metrics the server updates.
type Collectors struct {
	CommandsTotal     *prometheus.CounterVec
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	MailboxQueueDepth prometheus.Gauge
	SweepRemovedTotal prometheus.Counter
	ParseErrorsTotal  prometheus.Counter
}

// New registers and returns the server's metric collectors against reg.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "respd_commands_total",
			Help: "Commands executed, by command name.",
		}, []string{"command"}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "respd_connections_active",
			Help: "Number of currently open client connections.",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "respd_connections_total",
			Help: "Total client connections accepted.",
		}),
		MailboxQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "respd_mailbox_queue_depth",
			Help: "Requests currently buffered ahead of the storage mailbox.",
		}),
		SweepRemovedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "respd_sweep_removed_total",
			Help: "Keys evicted by the active-expiration sweeper.",
		}),
		ParseErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "respd_parse_errors_total",
			Help: "Commands rejected at parse time.",
		}),
	}
}

// Server serves the /metrics endpoint on its own listener, independent
// of the RESP listener.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a metrics HTTP server bound to addr. Call Serve to
// run it and Shutdown to stop it.
func NewServer(addr string, reg *prometheus.Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Serve blocks until the server stops or fails to start.
func (s *Server) Serve() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
