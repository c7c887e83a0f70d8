package api

import (
	"io"
	"net/http"

	"river-strike/internal/game"
	"river-strike/internal/scores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the engine methods used by the API.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetSnapshot returns a private copy of the latest post-tick state
	GetSnapshot() *game.GameSnapshot
	// StartRun discards the current run and starts a fresh one
	StartRun() string
	// Pause freezes a running run
	Pause() error
	// Resume continues a paused run
	Resume() error
	// SetIntent replaces the control input for the next tick
	SetIntent(in game.Intent)
	// RiverSamples samples the current channel
	RiverSamples(from, to, step float64) []game.Channel
	// GetStats returns engine counters
	GetStats() map[string]interface{}
}

// LeaderboardInterface is the read side of the score store.
type LeaderboardInterface interface {
	Top() []scores.Entry
	Best() (scores.Entry, error)
}

// FrameRenderer draws a snapshot as an image.
type FrameRenderer interface {
	EncodePNG(w io.Writer, snap *game.GameSnapshot) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine:      mockEngine,
//	    Leaderboard: store,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation host (required)
	Engine EngineInterface

	// Leaderboard serves /leaderboard and /highscore (required)
	Leaderboard LeaderboardInterface

	// Renderer serves /frame.png. If nil the endpoint returns 503.
	Renderer FrameRenderer

	// RateLimiter is an optional pre-configured rate limiter.
	RateLimiter *RequestLimiter

	// RateLimitConfig is used only if RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler dependencies.
type routerHandlers struct {
	engine      EngineInterface
	leaderboard LeaderboardInterface
	renderer    FrameRenderer
	limiter     *RequestLimiter
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it starts no goroutines other than the
// janitor of a limiter it creates itself, and opens no listeners.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewRequestLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	h := &routerHandlers{
		engine:      cfg.Engine,
		leaderboard: cfg.Leaderboard,
		renderer:    cfg.Renderer,
		limiter:     rateLimiter,
	}

	r.Route("/api", func(r chi.Router) {
		// Read side
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/river", h.handleGetRiver)
		r.Get("/frame.png", h.handleGetFrame)

		// Persistence
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/highscore", h.handleGetHighScore)

		// Run control
		r.Post("/run/start", h.handleRunStart)
		r.Post("/run/pause", h.handleRunPause)
		r.Post("/run/resume", h.handleRunResume)
		r.Post("/input", h.handleInput)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	return r
}
