package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joescharf/crev/internal/models"
	"github.com/joescharf/crev/internal/pipeline"
	"github.com/joescharf/crev/internal/store"
)

// maxCodeBytes bounds the request body accepted by POST /review.
const maxCodeBytes = 1 << 20

// Runner produces a review for a code snippet.
type Runner interface {
	Run(ctx context.Context, code string) (*pipeline.State, error)
}

// Server provides the review service handlers.
type Server struct {
	runner Runner
	store  store.Store
	model  string
	logger *slog.Logger
	ui     http.Handler
}

// NewServer creates a new API server.
// The store may be nil, in which case reviews are not persisted and the
// history routes answer 503.
func NewServer(r Runner, s store.Store, model string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		runner: r,
		store:  s,
		model:  model,
		logger: logger,
	}
}

// WithUI serves h for every GET path not claimed by an API route.
func (s *Server) WithUI(h http.Handler) *Server {
	s.ui = h
	return s
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /review", s.review)
	mux.HandleFunc("GET /reviews", s.listReviews)
	mux.HandleFunc("GET /reviews/{id}", s.getReview)
	mux.HandleFunc("GET /healthz", s.healthz)
	if s.ui != nil {
		mux.Handle("GET /", s.ui)
	}

	return corsMiddleware(s.logMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
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

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Review ---

func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCodeBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	start := time.Now()
	st, err := s.runner.Run(r.Context(), req.Code)
	if err != nil {
		s.logger.Error("review failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	elapsed := time.Since(start)

	rec := &models.Review{
		Code:       req.Code,
		Analysis:   st.Analysis,
		Issues:     st.Issues,
		Report:     st.Report,
		Model:      s.model,
		DurationMS: elapsed.Milliseconds(),
	}
	if s.store != nil {
		if err := s.store.CreateReview(r.Context(), rec); err != nil {
			s.logger.Warn("failed to store review", "error", err)
		}
	}

	// issues is always sent as an array, even when empty.
	if rec.Issues == nil {
		rec.Issues = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis": rec.Analysis,
		"issues":   rec.Issues,
		"report":   rec.Report,
	})
}

// --- History ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "review history is not enabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	reviews, err := s.store.ListReviews(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "review history is not enabled")
		return
	}
	id := r.PathValue("id")
	rev, err := s.store.GetReview(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "model": s.model})
}
