package handlers

import (
	"context"
	"net/http"

	"github.com/notes2gogo/backend/internal/domain/entities"
)

// AnalyticsReporter defines the analytics reports used by the handler
type AnalyticsReporter interface {
	Popular(ctx context.Context, userID int64, limit int) ([]*entities.PopularSearch, error)
	Suggestions(ctx context.Context, userID int64, prefix string, limit int) ([]*entities.SearchSuggestion, error)
	Trending(ctx context.Context, userID int64, days, limit int) ([]*entities.TrendingSearch, error)
	Stats(ctx context.Context, userID int64) (*entities.SearchStats, error)
}

// AnalyticsHandler serves the caller's search analytics reports
type AnalyticsHandler struct {
	reporter AnalyticsReporter
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(reporter AnalyticsReporter) *AnalyticsHandler {
	return &AnalyticsHandler{reporter: reporter}
}

// Popular handles GET /api/search/analytics/popular
func (h *AnalyticsHandler) Popular(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	popular, err := h.reporter.Popular(r.Context(), userID, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, popular)
}

// Suggestions handles GET /api/search/analytics/suggestions
func (h *AnalyticsHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	suggestions, err := h.reporter.Suggestions(r.Context(), userID, r.URL.Query().Get("prefix"), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, suggestions)
}

// Trending handles GET /api/search/analytics/trending
func (h *AnalyticsHandler) Trending(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	days, err := queryInt(r, "days")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	trending, err := h.reporter.Trending(r.Context(), userID, days, limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, trending)
}

// Stats handles GET /api/search/analytics/stats
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	stats, err := h.reporter.Stats(r.Context(), userID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

