// Package server exposes the extraction service over HTTP: document
// upload, capability inspection and the job history.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/tbellec/ladingd/internal/capability"
	"github.com/tbellec/ladingd/internal/cascade"
	"github.com/tbellec/ladingd/internal/common"
	"github.com/tbellec/ladingd/internal/export"
	"github.com/tbellec/ladingd/internal/repository"
)

// Server wires the HTTP handlers to the cascade executor and the
// optional job store. jobs and exporter may be nil when no database
// is configured; history endpoints then return 404.
type Server struct {
	cfg      *common.Config
	caps     capability.Set
	exec     *cascade.Executor
	jobs     *repository.JobStore
	exporter *export.Service
	logger   *slog.Logger
}

func New(cfg *common.Config, caps capability.Set, exec *cascade.Executor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, caps: caps, exec: exec, logger: logger}
}

// WithHistory enables the job history endpoints.
func (s *Server) WithHistory(jobs *repository.JobStore, exporter *export.Service) *Server {
	s.jobs = jobs
	s.exporter = exporter
	return s
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/v1/capabilities", s.handleCapabilities)
	mux.HandleFunc("POST /api/v1/extract", s.handleExtract)
	mux.HandleFunc("GET /api/v1/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/v1/jobs/export", s.handleExportJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.handleGetJob)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         int((12 * time.Hour).Seconds()),
	})
	return c.Handler(s.logRequests(mux))
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}
