// Package server exposes the resolution engine over HTTP: a webhook
// endpoint for inbound telephony events and a tenant identification
// endpoint.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leaseline/leaseline/internal/identity"
	"github.com/leaseline/leaseline/internal/resolver"
)

// Server routes webhook and identification requests to the engine.
type Server struct {
	pipeline *resolver.Pipeline
	matcher  *identity.Matcher
}

// New creates a Server.
func New(pipeline *resolver.Pipeline, matcher *identity.Matcher) *Server {
	return &Server{pipeline: pipeline, matcher: matcher}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Post("/webhook/vapi", s.handleWebhook)
	r.Post("/identify", s.handleIdentify)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebhook resolves an inbound telephony event to an account. The body
// is kept as a loosely-typed tree: the payload shape is provider-controlled
// and evolves.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var body resolver.Payload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	match, err := s.pipeline.Resolve(r.Context(), r.Header, body)
	if err != nil {
		zap.L().Error("event resolution failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "resolution failed"})
		return
	}
	if match == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unidentified caller"})
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// handleIdentify finds the tenant behind a phone/email/name fragment.
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var in identity.IdentifyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if in.Phone == "" && in.Email == "" && in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one of phone, email, name is required"})
		return
	}

	match, err := s.matcher.IdentifyTenant(r.Context(), in)
	if err != nil {
		zap.L().Error("tenant identification failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "identification failed"})
		return
	}
	if match == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no matching tenant"})
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
