package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type contextKey string

const patientIDKey contextKey = "patientID"

// loggerMiddleware records one structured line per request after it completes.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration", time.Since(start).String(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Patient-Token")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requirePatientToken parses the {patientID} route param, then asks the
// verifier whether the presented token may act for that patient. The token
// comes from X-Patient-Token or a Bearer Authorization header.
func (s *Server) requirePatientToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
		if err != nil {
			respondErr(w, http.StatusBadRequest, "invalid patient id")
			return
		}

		token := r.Header.Get("X-Patient-Token")
		if token == "" {
			auth := r.Header.Get("Authorization")
			token = strings.TrimPrefix(auth, "Bearer ")
		}

		if err := s.verifier.Verify(r.Context(), token, patientID); err != nil {
			respondErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), patientIDKey, patientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func patientIDFromContext(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(patientIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("patient id missing from context")
	}
	return id, nil
}

// ─── Response helpers ────────────────────────────────────────────────────────

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondErr(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]any{
		"success": false,
		"message": msg,
	})
}

func (s *Server) respondInternalErr(w http.ResponseWriter, err error) {
	s.logger.Error("internal error", "error", err)
	respondErr(w, http.StatusInternalServerError, "internal server error")
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
