package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/moviefinder/internal/config"
	"github.com/Clark-Hu/moviefinder/internal/provider"
)

// fakeProvider returns canned bodies and records the queries it was asked for.
type fakeProvider struct {
	mu       sync.Mutex
	body     json.RawMessage
	err      error
	queries  []string
	movieIDs []string
	calls    int
}

func (f *fakeProvider) Discover(ctx context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.body, f.err
}

func (f *fakeProvider) Search(ctx context.Context, query string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, query)
	return f.body, f.err
}

func (f *fakeProvider) Movie(ctx context.Context, id string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.movieIDs = append(f.movieIDs, id)
	return f.body, f.err
}

func buildTestServer(tb testing.TB, upstream provider.Client) *Server {
	tb.Helper()
	cfg := config.Proxy{
		Port:             "0",
		TMDBAPIKey:       "secret",
		TMDBTimeoutSecs:  1,
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
		AllowedOrigins:   []string{"*"},
	}
	logger := log.New(io.Discard, "", 0)
	srv := New(cfg, upstream, logger)
	// Replace chi router to avoid default middleware noise.
	srv.router = chi.NewRouter()
	srv.registerRoutes()
	return srv
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	upstream := &fakeProvider{body: json.RawMessage(`{"results":[]}`)}
	srv := buildTestServer(t, upstream)

	for _, target := range []string{"/api/movies/search", "/api/movies/search?query="} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		srv.handleSearch(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, rec.Code)
		}
		if got := decodeError(t, rec).Error; got != "Query parameter is required" {
			t.Fatalf("%s: error = %q", target, got)
		}
	}
	if upstream.calls != 0 {
		t.Fatalf("upstream called %d times for invalid requests", upstream.calls)
	}
}

func TestHandleSearch_RelaysBody(t *testing.T) {
	body := `{"page":1,"results":[{"id":1,"title":"Batman"}],"total_results":1}`
	upstream := &fakeProvider{body: json.RawMessage(body)}
	srv := buildTestServer(t, upstream)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/search?query=the%20batman", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != body {
		t.Fatalf("body = %s, want verbatim upstream body", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if len(upstream.queries) != 1 || upstream.queries[0] != "the batman" {
		t.Fatalf("queries = %v", upstream.queries)
	}
}

func TestHandleDiscover_UpstreamFailure(t *testing.T) {
	upstream := &fakeProvider{err: &provider.StatusError{StatusCode: 503, Status: "503 Service Unavailable"}}
	srv := buildTestServer(t, upstream)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/discover", nil)
	rec := httptest.NewRecorder()
	srv.handleDiscover(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Error != "Failed to fetch movies" {
		t.Fatalf("error = %q", resp.Error)
	}
	if !strings.Contains(resp.Message, "503") {
		t.Fatalf("message = %q, want upstream status", resp.Message)
	}
}

func TestHandleDiscover_SimulatedUpstream503(t *testing.T) {
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer upstreamSrv.Close()

	client, err := provider.NewHTTPClient(upstreamSrv.URL, "secret", 0, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("create provider client: %v", err)
	}
	srv := buildTestServer(t, client)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/discover", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := decodeError(t, rec).Message; !strings.Contains(msg, "503 Service Unavailable") {
		t.Fatalf("message = %q", msg)
	}
}

func TestHandleMovieDetails(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
		wantID     string
	}{
		{name: "ok", id: "550", wantStatus: http.StatusOK, wantID: "550"},
		{name: "leading zeros normalized", id: "0042", wantStatus: http.StatusOK, wantID: "42"},
		{name: "not numeric", id: "abc", wantStatus: http.StatusBadRequest},
		{name: "negative", id: "-1", wantStatus: http.StatusBadRequest},
		{name: "not found", id: "7", err: provider.ErrNotFound, wantStatus: http.StatusNotFound, wantID: "7"},
		{name: "upstream error", id: "8", err: &provider.StatusError{StatusCode: 502, Status: "502 Bad Gateway"}, wantStatus: http.StatusInternalServerError, wantID: "8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &fakeProvider{body: json.RawMessage(`{"id":550,"title":"Fight Club"}`), err: tt.err}
			srv := buildTestServer(t, upstream)

			req := httptest.NewRequest(http.MethodGet, "/api/movies/"+tt.id, nil)
			req = attachIDParam(req, tt.id)
			rec := httptest.NewRecorder()
			srv.handleMovieDetails(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantID == "" {
				if len(upstream.movieIDs) != 0 {
					t.Fatalf("upstream called for invalid id")
				}
				return
			}
			if len(upstream.movieIDs) != 1 || upstream.movieIDs[0] != tt.wantID {
				t.Fatalf("movie ids = %v, want [%s]", upstream.movieIDs, tt.wantID)
			}
		})
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	upstream := &fakeProvider{body: json.RawMessage(`{"results":[]}`)}
	cfg := config.Proxy{AllowedOrigins: []string{"*"}, TMDBTimeoutSecs: 1}
	srv := New(cfg, upstream, log.New(io.Discard, "", 0))

	req := httptest.NewRequest(http.MethodGet, "/api/movies/discover", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Cross-Origin-Resource-Policy"); got != "cross-origin" {
		t.Fatalf("Cross-Origin-Resource-Policy = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("missing Access-Control-Allow-Origin header")
	}
}

func TestHandleHealthz(t *testing.T) {
	srv := buildTestServer(t, &fakeProvider{})
	rec := httptest.NewRecorder()
	srv.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func attachIDParam(req *http.Request, id string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}
