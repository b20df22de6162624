package routes

import (
	"net/http"

	"github.com/notes2gogo/backend/internal/api/handlers"
	"github.com/notes2gogo/backend/internal/api/middleware"
	"github.com/notes2gogo/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler      *handlers.SearchHandler
	savedSearchHandler *handlers.SavedSearchHandler
	analyticsHandler   *handlers.AnalyticsHandler

	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router. cacheMiddleware may be nil when Redis is unavailable.
func NewRouter(
	searchHandler *handlers.SearchHandler,
	savedSearchHandler *handlers.SavedSearchHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		searchHandler:      searchHandler,
		savedSearchHandler: savedSearchHandler,
		analyticsHandler:   analyticsHandler,
		cacheMiddleware:    cacheMiddleware,
		allowedOrigins:     allowedOrigins,
		metrics:            metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Search endpoints
	r.mux.HandleFunc("POST /api/search", r.searchHandler.Search)
	r.mux.HandleFunc("GET /api/search", r.searchHandler.SearchQuery)

	// Saved search endpoints
	r.mux.HandleFunc("GET /api/search/saved", r.savedSearchHandler.List)
	r.mux.HandleFunc("POST /api/search/saved", r.savedSearchHandler.Create)
	r.mux.HandleFunc("GET /api/search/saved/{id}", r.savedSearchHandler.Get)
	r.mux.HandleFunc("PUT /api/search/saved/{id}", r.savedSearchHandler.Update)
	r.mux.HandleFunc("DELETE /api/search/saved/{id}", r.savedSearchHandler.Delete)
	r.mux.HandleFunc("POST /api/search/saved/{id}/execute", r.savedSearchHandler.Execute)

	// Analytics endpoints
	r.mux.HandleFunc("GET /api/search/analytics/popular", r.analyticsHandler.Popular)
	r.mux.HandleFunc("GET /api/search/analytics/suggestions", r.analyticsHandler.Suggestions)
	r.mux.HandleFunc("GET /api/search/analytics/trending", r.analyticsHandler.Trending)
	r.mux.HandleFunc("GET /api/search/analytics/stats", r.analyticsHandler.Stats)

	// Apply middleware in reverse order (last middleware wraps first)
	handler := middleware.RouteTagger(r.mux)
	handler = middleware.IdentityMiddleware("/health")(handler)
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.Compression(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.RequestIDMiddleware(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
