package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/birdmatch/internal/domain"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/request"
	"github.com/kailas-cloud/birdmatch/internal/domain/search/result"
	"github.com/kailas-cloud/birdmatch/internal/domain/species"
	healthuc "github.com/kailas-cloud/birdmatch/internal/usecase/health"
)

func blueJayOutcome() result.Outcome {
	return result.NewOutcome("q-1", []result.Item{
		{
			ID:             "blujay",
			CommonName:     "Blue Jay",
			ScientificName: "Cyanocitta cristata",
			Score:          0.87,
			ThumbnailURL:   "https://img/blujay.jpg",
			FieldMarks:     []string{"blue crest"},
		},
		{ID: "stejay", CommonName: "Steller's Jay", ScientificName: "Cyanocitta stelleri", Score: 0.61},
	})
}

func TestSearch_OK(t *testing.T) {
	ms := &mockSearcher{outcome: blueJayOutcome(), tokens: 5}
	h := newTestRouter(t, ms, RouterConfig{})

	rr := doJSON(h, http.MethodPost, "/api/v1/search", `{"query":"blue bird with crest"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if ms.query != "blue bird with crest" {
		t.Errorf("query = %q", ms.query)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "5" {
		t.Errorf("X-Embedding-Tokens = %q", rr.Header().Get("X-Embedding-Tokens"))
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	var raw map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if raw["totalCount"] != float64(2) || raw["queryId"] != "q-1" {
		t.Errorf("unexpected envelope: %v", raw)
	}
	results := raw["results"].([]any)
	first := results[0].(map[string]any)
	if first["commonName"] != "Blue Jay" || first["scientificName"] != "Cyanocitta cristata" {
		t.Errorf("unexpected first result: %v", first)
	}
	if first["thumbnailUrl"] != "https://img/blujay.jpg" || first["score"] != 0.87 {
		t.Errorf("unexpected first result: %v", first)
	}
	second := results[1].(map[string]any)
	if v, ok := second["thumbnailUrl"]; !ok || v != nil {
		t.Errorf("thumbnailUrl must be present and null, got %v", v)
	}
	if marks, ok := second["fieldMarks"].([]any); !ok || len(marks) != 0 {
		t.Errorf("fieldMarks must be an empty array, got %v", second["fieldMarks"])
	}
}

func TestSearch_EmptyResults(t *testing.T) {
	ms := &mockSearcher{outcome: result.NewOutcome("q-2", nil)}
	rr := doJSON(newTestRouter(t, ms, RouterConfig{}), http.MethodPost, "/api/v1/search", `{"query":"nothing"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"results":[]`) {
		t.Errorf("results must be an empty array: %s", rr.Body.String())
	}
}

func TestSearch_QueryParams(t *testing.T) {
	ms := &mockSearcher{outcome: result.NewOutcome("q", nil)}
	h := newTestRouter(t, ms, RouterConfig{})

	rr := doJSON(h, http.MethodPost, "/api/v1/search?limit=3&min_score=0.5", `{"query":"red bird"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	req, err := request.New(ms.query, domain.DefaultSearchConfig(), ms.opts...)
	if err != nil {
		t.Fatal(err)
	}
	if req.Limit() != 3 || req.MinScore() != 0.5 {
		t.Errorf("limit=%d minScore=%v", req.Limit(), req.MinScore())
	}
}

func TestSearch_BadQueryParams(t *testing.T) {
	tests := []struct {
		query string
		field string
	}{
		{"limit=abc", "limit"},
		{"min_score=high", "min_score"},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			ms := &mockSearcher{}
			rr := doJSON(newTestRouter(t, ms, RouterConfig{}), http.MethodPost,
				"/api/v1/search?"+tc.query, `{"query":"red bird"}`)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status %d", rr.Code)
			}
			body := decodeError(t, rr)
			if body.Code != CodeValidation || body.Field != tc.field {
				t.Errorf("unexpected error: %+v", body)
			}
			if ms.calls != 0 {
				t.Error("search must not run on invalid params")
			}
		})
	}
}

func TestSearch_InvalidBody(t *testing.T) {
	for _, body := range []string{`{}`, `{"query":42}`, `not json`, `{"query":null}`} {
		t.Run(body, func(t *testing.T) {
			ms := &mockSearcher{}
			rr := doJSON(newTestRouter(t, ms, RouterConfig{}), http.MethodPost, "/api/v1/search", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status %d", rr.Code)
			}
			if e := decodeError(t, rr); e.Code != CodeValidation || e.Field != "query" {
				t.Errorf("unexpected error: %+v", e)
			}
			if ms.calls != 0 {
				t.Error("search must not run")
			}
		})
	}
}

func TestSearch_EmptyBody(t *testing.T) {
	rr := doJSON(newTestRouter(t, &mockSearcher{}, RouterConfig{}), http.MethodPost, "/api/v1/search", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestSearch_UnsupportedMediaType(t *testing.T) {
	h := newTestRouter(t, &mockSearcher{}, RouterConfig{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("query=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeUnsupportedMedia {
		t.Errorf("code = %s", e.Code)
	}
}

func TestSearch_JSONWithCharset(t *testing.T) {
	ms := &mockSearcher{outcome: result.NewOutcome("q", nil)}
	h := newTestRouter(t, ms, RouterConfig{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"red bird"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
		field  string
	}{
		{"validation", domain.NewValidationError("query", "Query must be 3-500 characters"),
			http.StatusBadRequest, CodeValidation, "query"},
		{"provider", fmt.Errorf("embed: %w: 401 invalid api key sk-123", domain.ErrEmbeddingProviderError),
			http.StatusBadGateway, CodeSearchFailed, ""},
		{"dimension mismatch", fmt.Errorf("rank: %w", domain.NewDimensionMismatch(1536, 3)),
			http.StatusInternalServerError, CodeSearchFailed, ""},
		{"internal", errors.New("connection reset"),
			http.StatusInternalServerError, CodeSearchFailed, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockSearcher{err: tc.err}
			rr := doJSON(newTestRouter(t, ms, RouterConfig{}), http.MethodPost, "/api/v1/search", `{"query":"red bird"}`)
			if rr.Code != tc.status {
				t.Fatalf("status %d, want %d", rr.Code, tc.status)
			}
			e := decodeError(t, rr)
			if e.Code != tc.code || e.Field != tc.field {
				t.Errorf("unexpected error body: %+v", e)
			}
			if tc.code == CodeSearchFailed && e.Message != searchUnavailableMessage {
				t.Errorf("provider details leaked: %q", e.Message)
			}
		})
	}
}

func TestSearch_GetNotAllowed(t *testing.T) {
	rr := doJSON(newTestRouter(t, &mockSearcher{}, RouterConfig{}), http.MethodGet, "/api/v1/search", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeMethodNotAllowed {
		t.Errorf("code = %s", e.Code)
	}
}

func TestSearch_PanicRecovered(t *testing.T) {
	rr := doJSON(newTestRouter(t, &mockSearcher{panics: true}, RouterConfig{}),
		http.MethodPost, "/api/v1/search", `{"query":"red bird"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeInternal {
		t.Errorf("code = %s", e.Code)
	}
}

func TestGetSpecies(t *testing.T) {
	ms := &mockSearcher{record: species.Record{
		ID: "blujay", CommonName: "Blue Jay", ScientificName: "Cyanocitta cristata", Description: "Blue crest.",
	}}
	h := newTestRouter(t, ms, RouterConfig{})

	rr := doJSON(h, http.MethodGet, "/api/v1/species/blujay", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp speciesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "blujay" || resp.Description != "Blue crest." || resp.ThumbnailURL != nil {
		t.Errorf("unexpected species: %+v", resp)
	}
	if strings.Contains(rr.Body.String(), "embedding") {
		t.Error("embedding must never be exposed")
	}

	rr = doJSON(h, http.MethodGet, "/api/v1/species/unknown", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeNotFound {
		t.Errorf("code = %s", e.Code)
	}
}

func TestGetSpecies_InternalError(t *testing.T) {
	ms := &mockSearcher{err: errors.New("db down")}
	rr := doJSON(newTestRouter(t, ms, RouterConfig{}), http.MethodGet, "/api/v1/species/blujay", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeInternal || e.Message != internalMessage {
		t.Errorf("unexpected error: %+v", e)
	}
}

func TestGetTaxonomy(t *testing.T) {
	ms := &mockSearcher{tax: species.Taxonomy{Version: "2024", UpdatedAt: "2024-10-22", Source: "eBird"}}
	rr := doJSON(newTestRouter(t, ms, RouterConfig{}), http.MethodGet, "/api/v1/taxonomy", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp taxonomyResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Version != "2024" || resp.LastUpdated == nil || *resp.LastUpdated != "2024-10-22" {
		t.Errorf("unexpected taxonomy: %+v", resp)
	}

	ms.tax = species.Taxonomy{}.WithDefaults()
	rr = doJSON(newTestRouter(t, ms, RouterConfig{}), http.MethodGet, "/api/v1/taxonomy", "")
	if !strings.Contains(rr.Body.String(), `"lastUpdated":null`) || !strings.Contains(rr.Body.String(), `"unknown"`) {
		t.Errorf("unexpected default taxonomy: %s", rr.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		code   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			hr := &mockHealth{report: healthuc.Report{Status: tc.status, Checks: map[string]healthuc.CheckResult{}}}
			h := NewRouter(NewServer(&mockSearcher{}, hr, nil), RouterConfig{}, nil)
			rr := doJSON(h, http.MethodGet, "/health", "")
			if rr.Code != tc.code {
				t.Errorf("status %d, want %d", rr.Code, tc.code)
			}
		})
	}
}

func TestNotFoundRoute(t *testing.T) {
	rr := doJSON(newTestRouter(t, &mockSearcher{}, RouterConfig{}), http.MethodGet, "/api/v1/birds", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeNotFound {
		t.Errorf("code = %s", e.Code)
	}
}

func TestMethodNotAllowedRoute(t *testing.T) {
	rr := doJSON(newTestRouter(t, &mockSearcher{}, RouterConfig{}), http.MethodDelete, "/api/v1/taxonomy", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeMethodNotAllowed {
		t.Errorf("code = %s", e.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := doJSON(newTestRouter(t, &mockSearcher{}, RouterConfig{APIKeys: []string{"k"}}), http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestRouter_AuthEnforced(t *testing.T) {
	ms := &mockSearcher{outcome: result.NewOutcome("q", nil)}
	h := newTestRouter(t, ms, RouterConfig{APIKeys: []string{"secret"}})

	rr := doJSON(h, http.MethodPost, "/api/v1/search", `{"query":"red bird"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"red bird"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}
