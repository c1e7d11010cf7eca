package api

import (
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics with bounded cardinality (no per-player labels to prevent DoS)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Time spent running one lobby tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.02, 0.033},
	})

	activeLobbies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_active_lobbies",
		Help: "Number of lobbies with at least one player",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_active_connections",
		Help: "Currently connected WebSocket sessions",
	})

	// Bounded label values: "rate_limit", "origin", "invalid", "ws_limit", "auth"
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter, origin check, or auth",
	}, []string{"reason"})

	// Bounded label values: the fixed set of action names DecodeCommand accepts
	commandRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "command_rejected_total",
		Help: "Inbound commands rejected by validation or lobby rules",
	}, []string{"action"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})
)

// StartDebugServer starts the internal observability server. It binds to
// localhost only: pprof exposed externally is a DoS vector.
func StartDebugServer(log *zap.Logger, enabled bool, port int) {
	if !enabled {
		log.Info("debug server disabled")
		return
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		log.Info("debug server starting", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("debug server stopped", zap.Error(err))
		}
	}()
}

// RecordTick records one lobby tick's processing time.
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// UpdateActiveLobbies updates the active-lobby gauge.
func UpdateActiveLobbies(count int) {
	activeLobbies.Set(float64(count))
}

// UpdateActiveSessions updates the active-session gauge.
func UpdateActiveSessions(count int) {
	activeSessions.Set(float64(count))
}

// RecordConnectionRejected increments the connection-rejection counter.
// reason must be one of: "rate_limit", "origin", "invalid", "ws_limit", "auth".
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordCommandRejected increments the command-rejection counter.
func RecordCommandRejected(action string) {
	commandRejected.WithLabelValues(action).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}
