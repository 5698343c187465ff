package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/birdmatch/internal/domain"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/request"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/result"
	"github.com/kailas-cloud/birdmatch/internal/domain/species"
	"github.com/kailas-cloud/birdmatch/internal/logger"
	healthuc "github.com/kailas-cloud/birdmatch/internal/usecase/health"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Searcher is the consumer interface for the search use case.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...request.Option) (result.Outcome, error)
	Species(ctx context.Context, id string) (species.Record, error)
	Taxonomy(ctx context.Context) (species.Taxonomy, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	search        Searcher
	health        HealthReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, health HealthReporter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:        search,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !isJSON(ct) {
		writeError(w, http.StatusUnsupportedMediaType, CodeUnsupportedMedia, "Content-Type must be application/json")
		return
	}

	var req searchRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil || req.Query == nil {
		if err != nil && !errors.Is(err, io.EOF) {
			s.requestLogger(r).Debug("Invalid search body", zap.Error(err))
		}
		writeErrorField(w, http.StatusBadRequest, CodeValidation,
			"Query field is required and must be a string", "query")
		return
	}

	opts, err := searchOptions(r)
	if err != nil {
		s.handleDomainError(w, r, err, searchFallback)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	outcome, err := s.search.Search(ctx, *req.Query, opts...)
	if err != nil {
		s.handleDomainError(w, r, err, searchFallback)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, NewSearchResponse(outcome))
}

// SearchMethodNotAllowed handles GET /api/v1/search.
func (s *Server) SearchMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "GET method not allowed. Use POST instead.")
}

// GetSpecies handles GET /api/v1/species/{id}.
func (s *Server) GetSpecies(w http.ResponseWriter, r *http.Request) {
	rec, err := s.search.Species(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err, internalFallback)
		return
	}
	writeJSON(w, http.StatusOK, speciesResponseFrom(rec))
}

// GetTaxonomy handles GET /api/v1/taxonomy.
func (s *Server) GetTaxonomy(w http.ResponseWriter, r *http.Request) {
	t, err := s.search.Taxonomy(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err, internalFallback)
		return
	}
	resp := taxonomyResponse{Version: t.Version, Source: t.Source}
	if t.UpdatedAt != "" {
		resp.LastUpdated = &t.UpdatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health. Only an unhealthy store turns the response into 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{Status: string(report.Status), Checks: checks})
}

// NotFound is the JSON 404 for unknown routes.
func (s *Server) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "Route "+r.Method+" "+r.URL.Path+" not found")
}

// MethodNotAllowed is the JSON 405 for known routes with the wrong method.
func (s *Server) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, r.Method+" method not allowed")
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logger.FromContextOr(r.Context(), s.logger)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// searchOptions parses the optional limit and min_score query parameters.
func searchOptions(r *http.Request) ([]request.Option, error) {
	q := r.URL.Query()
	var opts []request.Option

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, domain.NewValidationError("limit", "limit must be an integer between %d and %d",
				request.MinLimit, request.MaxLimit)
		}
		opts = append(opts, request.WithLimit(n))
	}

	if raw := q.Get("min_score"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, domain.NewValidationError("min_score", "min_score must be a number between %g and %g",
				float64(request.MinMinScore), float64(request.MaxMinScore))
		}
		opts = append(opts, request.WithMinScore(f))
	}
	return opts, nil
}
