// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/skillgrade/internal/adapters/http/swagger"
	"github.com/okian/skillgrade/internal/domain/grading"
	"github.com/okian/skillgrade/internal/domain/model"
	"github.com/okian/skillgrade/pkg/logger"
	"github.com/okian/skillgrade/pkg/tracing"
)

// Grader scores one submission.
type Grader interface {
	Grade(ctx context.Context, req grading.Request) (grading.Result, error)
}

// AttemptReader reads stored attempts.
type AttemptReader interface {
	Get(ctx context.Context, playerID, gameID string) (model.AttemptRecord, error)
}

// ReviewReader lists pending escalations.
type ReviewReader interface {
	Pending(ctx context.Context, limit int) ([]model.ReviewQueueItem, error)
}

// Dependencies required by HTTP handlers.
type Dependencies struct {
	Grader   Grader
	Attempts AttemptReader
	Reviews  ReviewReader
	Stats    StatsProvider
	Logger   logger.Logger
}

// Server wires HTTP routes for the scoring API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	attemptsHandler *AttemptsHandler
	reviewHandler   *ReviewHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	l := deps.Logger
	if l == nil {
		l = logger.NewNop()
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps.Stats),
		attemptsHandler: NewAttemptsHandler(deps.Grader, deps.Attempts, l.Named("api")),
		reviewHandler:   NewReviewHandler(deps.Reviews),
	}
}

// Routes returns the router with every endpoint attached.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware)

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	swagger.Mount(r)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/attempts", MetricsMiddleware(s.attemptsHandler.HandlePostAttempt, "attempts"))
		r.Get("/attempts/{playerID}/{gameID}", MetricsMiddleware(s.attemptsHandler.HandleGetAttempt, "attempt"))
		r.Get("/review-queue", MetricsMiddleware(s.reviewHandler.HandleList, "review_queue"))
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
