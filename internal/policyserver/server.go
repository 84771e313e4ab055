// Package policyserver serves a version policy file over HTTP for
// development and staging. The file is re-read and validated on every
// request, so edits take effect immediately and a broken edit is never served.
package policyserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"grab-go/internal/grab"
)

// PolicyPath is the route the policy is served on.
const PolicyPath = "/policy.json"

// Server serves one policy file.
type Server struct {
	policyFile string
	logger     grab.Logger
}

// New creates a Server for policyFile.
func New(policyFile string, logger grab.Logger) *Server {
	if logger == nil {
		logger = grab.NewNopLogger()
	}
	return &Server{policyFile: policyFile, logger: logger}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get(PolicyPath, s.handlePolicy)
	r.Get("/healthz", s.handleHealth)
	return r
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.policyFile)
	if err != nil {
		s.logger.Error("reading policy file", "path", s.policyFile, "error", err)
		respondWithError(w, http.StatusInternalServerError, "policy file unavailable")
		return
	}

	if _, err := grab.ParsePolicyDocument(data); err != nil {
		s.logger.Error("refusing to serve invalid policy", "path", s.policyFile, "error", err)
		respondWithError(w, http.StatusInternalServerError, "policy file is invalid")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// ListenAndServe serves h on addr until ctx is done, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("policy server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down policy server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
