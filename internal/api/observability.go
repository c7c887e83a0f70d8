package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"river-strike/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality: labels are entity kinds, causes and
// route patterns only.
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "river_tick_duration_seconds",
		Help:    "Time spent in a simulation tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01},
	})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "river_render_duration_seconds",
		Help:    "Time spent rendering a frame",
		Buckets: []float64{0.005, 0.01, 0.02, 0.033, 0.05, 0.1},
	})

	entityCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "river_entities",
		Help: "Live entities by collection",
	}, []string{"collection"}) // enemies, playerBullets, enemyBullets, pickups, obstacles, particles

	scoreGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "river_score",
		Help: "Score of the current run",
	})

	speedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "river_scroll_speed",
		Help: "Current scroll speed in world units per second",
	})

	killsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "river_kills_total",
		Help: "Destroyed enemies and obstacles",
	}, []string{"kind"})

	damageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "river_player_damage_total",
		Help: "Hits taken by the player",
	}, []string{"cause"})

	pickupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "river_pickups_total",
		Help: "Collected pickups",
	}, []string{"kind"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "river_runs_total",
		Help: "Run lifecycle transitions",
	}, []string{"transition"}) // started, over

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // rate_limit, origin, ws_total_limit, ws_ip_limit

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsClientIPs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_client_ips",
		Help: "Distinct client IPs holding websocket slots",
	})

	rateLimitClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_ratelimit_clients",
		Help: "Client IPs with a live request bucket",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "WebSocket messages by direction",
	}, []string{"direction"}) // out, in
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be localhost in production
	BasicAuthUser string
	BasicAuthPass string
}

// ObservabilityFromPort returns localhost-only defaults for a port.
func ObservabilityFromPort(enabled bool, port int) ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:       enabled,
		ListenAddr:    fmt.Sprintf("127.0.0.1:%d", port),
		BasicAuthUser: os.Getenv("DEBUG_USER"),
		BasicAuthPass: os.Getenv("DEBUG_PASS"),
	}
}

// DebugHandler builds the pprof + metrics mux.
func DebugHandler(cfg ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return handler
}

// StartDebugServer starts the internal observability server.
// CRITICAL: This MUST bind to localhost only to prevent pprof-based DoS
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	host := cfg.ListenAddr
	if len(host) < 10 || (host[:10] != "127.0.0.1:" && host[:10] != "localhost:") {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	handler := DebugHandler(cfg)

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}

// ObserveTick is a game.TickObserver feeding the engine gauges.
func ObserveTick(took time.Duration, snap *game.GameSnapshot) {
	tickDuration.Observe(took.Seconds())
	entityCount.WithLabelValues("enemies").Set(float64(len(snap.Enemies)))
	entityCount.WithLabelValues("playerBullets").Set(float64(len(snap.PlayerBullets)))
	entityCount.WithLabelValues("enemyBullets").Set(float64(len(snap.EnemyBullets)))
	entityCount.WithLabelValues("pickups").Set(float64(len(snap.Pickups)))
	entityCount.WithLabelValues("obstacles").Set(float64(len(snap.Obstacles)))
	entityCount.WithLabelValues("particles").Set(float64(len(snap.Particles)))
	scoreGauge.Set(float64(snap.Score))
	speedGauge.Set(snap.Speed)
}

// RecordEvent is a game.EventSink feeding the gameplay counters.
func RecordEvent(ev game.Event) {
	switch ev.Type {
	case game.EventTypeKill:
		var p game.KillPayload
		if decodePayload(ev, &p) {
			killsTotal.WithLabelValues(p.Target).Inc()
		}
	case game.EventTypePlayerDamaged:
		var p game.DamagePayload
		if decodePayload(ev, &p) {
			damageTotal.WithLabelValues(p.Cause).Inc()
		}
	case game.EventTypePickup:
		var p game.PickupPayload
		if decodePayload(ev, &p) {
			pickupsTotal.WithLabelValues(p.Kind).Inc()
		}
	case game.EventTypeRunStart:
		runsTotal.WithLabelValues("started").Inc()
	case game.EventTypeGameOver:
		runsTotal.WithLabelValues("over").Inc()
	}
}

func decodePayload(ev game.Event, v interface{}) bool {
	return len(ev.Payload) > 0 && json.Unmarshal(ev.Payload, v) == nil
}

// RecordRender records render timing for metrics
func RecordRender(duration time.Duration) {
	renderDuration.Observe(duration.Seconds())
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// UpdateWSClientIPs sets how many IPs hold websocket slots
func UpdateWSClientIPs(count int) {
	wsClientIPs.Set(float64(count))
}

// UpdateRateLimitClients sets how many request buckets are live
func UpdateRateLimitClients(count int) {
	rateLimitClients.Set(float64(count))
}

// IncrementWSMessages increments the WebSocket message counter
func IncrementWSMessages(direction string) {
	wsMessagesTotal.WithLabelValues(direction).Inc()
}
