package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/notes2gogo/backend/internal/domain/providers"
	"github.com/notes2gogo/backend/internal/infrastructure/observability"
)

const (
	analyticsPathPrefix = "/api/search/analytics/"
	searchPathPrefix    = "/api/search"
)

// CacheMiddleware caches the caller's analytics report responses and drops
// them once the caller runs a search, since every search feeds the reports.
type CacheMiddleware struct {
	cache      providers.CacheProvider
	ttlSeconds int
	metrics    *observability.Metrics
}

// NewCacheMiddleware creates a new cache middleware
func NewCacheMiddleware(cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics) *CacheMiddleware {
	return &CacheMiddleware{
		cache:      cache,
		ttlSeconds: ttlSeconds,
		metrics:    metrics,
	}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Identity is enforced further in; without one there is nothing to key on
		userID, ok := ParseUserID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, analyticsPathPrefix):
			m.serveCached(w, r, next, userID)
		case isSearchPath(r.URL.Path):
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)
			if recorder.statusCode < 300 {
				m.InvalidateUser(r.Context(), userID)
			}
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (m *CacheMiddleware) serveCached(w http.ResponseWriter, r *http.Request, next http.Handler, userID int64) {
	ctx := r.Context()
	cacheKey := analyticsCacheKey(userID, r)

	if cached, err := m.cache.Get(ctx, cacheKey); err == nil {
		observability.RecordCacheHit(ctx, m.metrics, analyticsPathPrefix)
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(cached)
		return
	}

	observability.RecordCacheMiss(ctx, m.metrics, analyticsPathPrefix)
	w.Header().Set("X-Cache", "MISS")

	recorder := &responseRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
	}
	next.ServeHTTP(recorder, r)

	// Only cache successful responses
	if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
		if err := m.cache.Set(ctx, cacheKey, recorder.body.Bytes(), m.ttlSeconds); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache analytics response")
		}
	}
}

// InvalidateUser drops every cached analytics report of userID
func (m *CacheMiddleware) InvalidateUser(ctx context.Context, userID int64) {
	pattern := fmt.Sprintf("analytics:%d:*", userID)
	if err := m.cache.DeletePattern(ctx, pattern); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("pattern", pattern).Msg("Failed to invalidate analytics cache")
	}
}

// isSearchPath matches the routes that execute a search and therefore record analytics
func isSearchPath(path string) bool {
	if path == searchPathPrefix {
		return true
	}
	return strings.HasPrefix(path, searchPathPrefix+"/saved/") && strings.HasSuffix(path, "/execute")
}

// analyticsCacheKey hashes the path and raw query under a per-user prefix
func analyticsCacheKey(userID int64, r *http.Request) string {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("analytics:%d:%s", userID, hex.EncodeToString(hash[:]))
}

// responseRecorder captures the response for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

// WriteHeader captures the status code
func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

// Write captures the response body and writes to the client
func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
