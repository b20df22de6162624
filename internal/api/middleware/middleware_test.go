package middleware_test

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notes2gogo/backend/internal/api/middleware"
	"github.com/notes2gogo/backend/internal/domain/providers"
	"github.com/notes2gogo/backend/internal/infrastructure/observability"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = append([]byte(nil), value...)
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.items, k)
		}
	}
	return nil
}

func (c *memoryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var seen string
	handler := middleware.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/search", nil))

	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestIDMiddleware_ReusesCallerID(t *testing.T) {
	var seen string
	handler := middleware.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/search", nil)
	req.Header.Set(middleware.RequestIDHeader, "edge-1234")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "edge-1234", seen)
	assert.Equal(t, "edge-1234", w.Header().Get(middleware.RequestIDHeader))
}

func TestIdentityMiddleware(t *testing.T) {
	var got int64
	handler := middleware.IdentityMiddleware("/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = observability.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		path   string
		header string
		status int
		userID int64
	}{
		{"/api/search", "42", http.StatusOK, 42},
		{"/api/search", "", http.StatusUnauthorized, 0},
		{"/api/search", "abc", http.StatusUnauthorized, 0},
		{"/api/search", "0", http.StatusUnauthorized, 0},
		{"/api/search", "-4", http.StatusUnauthorized, 0},
		{"/health", "", http.StatusOK, 0},
	}
	for _, tc := range cases {
		got = 0
		req := httptest.NewRequest("GET", tc.path, nil)
		if tc.header != "" {
			req.Header.Set(middleware.UserIDHeader, tc.header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, tc.status, w.Code, "%s %q", tc.path, tc.header)
		assert.Equal(t, tc.userID, got, "%s %q", tc.path, tc.header)
	}
}

func TestIdentityMiddleware_RejectionBody(t *testing.T) {
	handler := middleware.IdentityMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without identity")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/search", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"missing or invalid X-User-ID header"}`, w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	handler := middleware.CORSMiddleware([]string{"https://app.example.com"})(next)

	req := httptest.NewRequest("GET", "/api/search", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.UserIDHeader)
	assert.Equal(t, http.StatusTeapot, w.Code)

	req = httptest.NewRequest("OPTIONS", "/api/search", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func analyticsHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"query_text":"meeting"}]`))
	})
}

func TestCacheMiddleware_CachesAnalyticsPerUser(t *testing.T) {
	cache := newMemoryCache()
	calls := 0
	handler := middleware.NewCacheMiddleware(cache, 60, nil).Middleware(analyticsHandler(&calls))

	get := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/search/analytics/popular?limit=5", nil)
		req.Header.Set(middleware.UserIDHeader, user)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	first := get("42")
	second := get("42")
	other := get("7")

	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestCacheMiddleware_SearchInvalidatesCallerReports(t *testing.T) {
	cache := newMemoryCache()
	calls := 0
	cm := middleware.NewCacheMiddleware(cache, 60, nil)

	mux := http.NewServeMux()
	mux.Handle("GET /api/search/analytics/popular", analyticsHandler(&calls))
	mux.HandleFunc("POST /api/search", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := cm.Middleware(mux)

	serve := func(method, target, user string) {
		req := httptest.NewRequest(method, target, nil)
		req.Header.Set(middleware.UserIDHeader, user)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	serve("GET", "/api/search/analytics/popular", "42")
	serve("GET", "/api/search/analytics/popular", "7")
	require.Equal(t, 2, cache.len())

	serve("POST", "/api/search", "42")
	assert.Equal(t, 1, cache.len())

	serve("GET", "/api/search/analytics/popular", "42")
	assert.Equal(t, 3, calls)
}

func TestCacheMiddleware_SkipsErrorsAndAnonymous(t *testing.T) {
	cache := newMemoryCache()
	handler := middleware.NewCacheMiddleware(cache, 60, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"limit must be between 1 and 50"}`))
	}))

	req := httptest.NewRequest("GET", "/api/search/analytics/popular?limit=99", nil)
	req.Header.Set(middleware.UserIDHeader, "42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/search/analytics/popular", nil))

	assert.Zero(t, cache.len())
}

func TestCompression(t *testing.T) {
	body := strings.Repeat(`{"title":"Meeting notes"}`, 50)
	handler := middleware.Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))

	req := httptest.NewRequest("GET", "/api/search", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	decoded, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, body, string(decoded))
}

func TestCompression_NoContentIsUntouched(t *testing.T) {
	handler := middleware.Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("DELETE", "/api/search/saved/5", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Zero(t, w.Body.Len())
}

func TestObservabilityMiddleware_TagsRoute(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search/saved/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.ObservabilityMiddleware(nil)(middleware.RouteTagger(mux))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/search/saved/5", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
