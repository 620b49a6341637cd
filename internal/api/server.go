// Package api provides the HTTP surface of the discovery daemon: starting
// search runs, reading progressive results, favorites and auth.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hackhub/hackhub/internal/api/middleware"
	"github.com/hackhub/hackhub/internal/auth"
	"github.com/hackhub/hackhub/internal/config"
	"github.com/hackhub/hackhub/internal/favorites"
	"github.com/hackhub/hackhub/internal/ingest"
	hublog "github.com/hackhub/hackhub/internal/log"
	"github.com/hackhub/hackhub/internal/snapshot"
)

// Server is the HTTP API server.
type Server struct {
	cfg        config.AppConfig
	supervisor *ingest.Supervisor
	runs       *ingest.Registry
	snapshots  snapshot.Store
	favorites  *favorites.Store
	authClient *auth.Client
	sessions   *auth.SessionStore

	// rootCtx owns the lifetime of search runs, which outlive the requests
	// that start them.
	rootCtx context.Context

	// latestGroup collapses concurrent reads of the latest snapshot into one
	// backend round trip.
	latestGroup singleflight.Group
}

// Deps bundles the server's collaborators.
type Deps struct {
	Supervisor *ingest.Supervisor
	Runs       *ingest.Registry
	Snapshots  snapshot.Store
	Favorites  *favorites.Store
	AuthClient *auth.Client
	Sessions   *auth.SessionStore
}

// New creates the API server. rootCtx bounds all background run activity.
func New(rootCtx context.Context, cfg config.AppConfig, deps Deps) *Server {
	return &Server{
		cfg:        cfg,
		supervisor: deps.Supervisor,
		runs:       deps.Runs,
		snapshots:  deps.Snapshots,
		favorites:  deps.Favorites,
		authClient: deps.AuthClient,
		sessions:   deps.Sessions,
		rootCtx:    rootCtx,
	}
}

// Router builds the chi router with the canonical middleware stack and all
// routes mounted.
func (s *Server) Router() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins: s.cfg.CORSOrigins,
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
		RateLimitRPM:   s.cfg.RateLimitRPM,
	})

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.handleStartSearch)
		r.Route("/search/{runID}", func(r chi.Router) {
			r.Get("/", s.handleRunStatus)
			r.Get("/events", s.handleRunEvents)
			r.Get("/stream", s.handleRunStream)
		})

		r.Get("/events", s.handleLatestEvents)

		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		r.Route("/favorites", func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/", s.handleListFavorites)
			r.Post("/", s.handleAddFavorite)
			r.Delete("/{eventID}", s.handleRemoveFavorite)
		})
	})

	return r
}

// logger returns a context-aware logger configured with component metadata.
func logger(ctx context.Context, component string) *zerolog.Logger {
	l := hublog.WithComponentFromContext(ctx, component)
	return &l
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"runs":   s.runs.Len(),
	})
}
