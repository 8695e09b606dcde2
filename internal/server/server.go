// Package server exposes the scanner and the dataset browser over HTTP as a
// JSON API. It is an interface-boundary surface: it decodes requests,
// delegates to the injected services and encodes their results; no domain
// logic lives here.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/divyagonja/phoenixing/api/schemas"
	"github.com/divyagonja/phoenixing/internal/config"
	"github.com/divyagonja/phoenixing/internal/dataset"
	"github.com/divyagonja/phoenixing/internal/registry"
	"github.com/divyagonja/phoenixing/internal/scan"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Scanner runs deep scans.
type Scanner interface {
	Scan(ctx context.Context, companyNumber string) (*schemas.Report, error)
}

// DatasetQuery serves paginated dataset pages.
type DatasetQuery interface {
	Fetch(ctx context.Context, filter dataset.Filter, page, perPage int) schemas.QueryResult
}

// StatsProvider serves the cached risk statistics.
type StatsProvider interface {
	Get(ctx context.Context) schemas.RiskStats
}

// Server is the HTTP API server.
type Server struct {
	scanner Scanner
	query   DatasetQuery
	stats   StatsProvider
	cfg     config.ServerConfig
	log     *zap.Logger
}

// New creates the API server with its dependencies.
func New(scanner Scanner, query DatasetQuery, stats StatsProvider, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		scanner: scanner,
		query:   query,
		stats:   stats,
		cfg:     cfg,
		log:     logger.Named("server"),
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/companies", s.handleCompanies)
		r.Get("/scan/{companyNumber}", s.handleScan)
	})
	return r
}

// ListenAndServe runs the server until the context is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.log.Info("Shutting down API server")
		return srv.Shutdown(shutdownCtx)
	}
}

// handleStats serves the cached per-bucket record counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stats.Get(r.Context()))
}

// handleCompanies serves one page of the bulk dataset. Query parameters:
// risk_filter (high|medium|low), search, page, per_page. The risk and search
// filters are mutually exclusive. Store failures come back as a QueryResult
// with success=false and HTTP 200, mirroring the soft-error contract of the
// pagination layer.
func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var filter dataset.Filter
	if raw := params.Get("risk_filter"); raw != "" {
		bucket, ok := schemas.ParseRiskBucket(raw)
		if !ok {
			s.writeJSONError(w, http.StatusBadRequest, "risk_filter must be one of high, medium, low")
			return
		}
		filter.Bucket = bucket
	}
	if search := params.Get("search"); search != "" {
		if filter.Bucket != "" {
			s.writeJSONError(w, http.StatusBadRequest, "risk_filter and search cannot be combined")
			return
		}
		filter.Search = search
	}

	page := intParam(params.Get("page"), 1)
	perPage := intParam(params.Get("per_page"), 0)

	s.writeJSON(w, http.StatusOK, s.query.Fetch(r.Context(), filter, page, perPage))
}

// handleScan runs a deep scan synchronously and returns the finalized report.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	companyNumber := chi.URLParam(r, "companyNumber")
	if companyNumber == "" {
		s.writeJSONError(w, http.StatusBadRequest, "company number is required")
		return
	}

	report, err := s.scanner.Scan(r.Context(), companyNumber)
	if err != nil {
		if registry.IsNotFound(err) {
			s.writeJSONError(w, http.StatusNotFound, "company not found")
			return
		}
		if errors.Is(err, scan.ErrProfileUnavailable) {
			s.log.Warn("Scan failed", zap.String("company", companyNumber), zap.Error(err))
			s.writeJSONError(w, http.StatusBadGateway, "company profile unavailable, try again later")
			return
		}
		s.log.Error("Scan failed unexpectedly", zap.String("company", companyNumber), zap.Error(err))
		s.writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// intParam parses a positive integer query parameter, falling back on the
// default for anything missing or malformed.
func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
