// Package api implements the HTTP layer for the HabitPulse backend.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/rumbidzaim/habitpulse-backend/internal/achievement"
	"github.com/rumbidzaim/habitpulse-backend/internal/feedback"
	"github.com/rumbidzaim/habitpulse-backend/internal/store"
	"github.com/rumbidzaim/habitpulse-backend/internal/trend"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string
}

// SubmissionStore is the slice of the store the handlers need. *store.Store
// satisfies it; tests inject an in-memory stub.
type SubmissionStore interface {
	RecordSubmission(ctx context.Context, p store.RecordSubmissionParams) (store.Submission, []trend.Entry, error)
	GetSubmissions(ctx context.Context, patientID uuid.UUID) ([]store.Submission, error)
	GetBadges(ctx context.Context, patientID uuid.UUID) ([]achievement.Badge, error)
}

// Pipeline is the narrow interface over the feedback coordinator. Keeping it
// here means tests can stub the whole post-save pipeline with one method.
type Pipeline interface {
	Run(ctx context.Context, patientID uuid.UUID, history []trend.Entry) feedback.Outcome
}

// TokenVerifier is the authentication collaborator. Session handling lives
// outside this service; the middleware only asks "may this token act for this
// patient".
type TokenVerifier interface {
	Verify(ctx context.Context, token string, patientID uuid.UUID) error
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	store    SubmissionStore
	pipeline Pipeline
	verifier TokenVerifier
	cfg      Config
	logger   *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	st SubmissionStore,
	pipeline Pipeline,
	verifier TokenVerifier,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		store:    st,
		pipeline: pipeline,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API v1 ────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		r.Route("/patients/{patientID}", func(r chi.Router) {
			r.Use(s.requirePatientToken)
			r.Post("/scores", s.handleSubmitScores)
			r.Get("/scores", s.handleListScores)
			r.Get("/badges", s.handleListBadges)
		})
	})

	return r
}
