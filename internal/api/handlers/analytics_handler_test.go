package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/notes2gogo/backend/internal/api/handlers"
	"github.com/notes2gogo/backend/internal/domain/entities"
	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) Popular(ctx context.Context, userID int64, limit int) ([]*entities.PopularSearch, error) {
	args := m.Called(ctx, userID, limit)
	r, _ := args.Get(0).([]*entities.PopularSearch)
	return r, args.Error(1)
}

func (m *mockReporter) Suggestions(ctx context.Context, userID int64, prefix string, limit int) ([]*entities.SearchSuggestion, error) {
	args := m.Called(ctx, userID, prefix, limit)
	r, _ := args.Get(0).([]*entities.SearchSuggestion)
	return r, args.Error(1)
}

func (m *mockReporter) Trending(ctx context.Context, userID int64, days, limit int) ([]*entities.TrendingSearch, error) {
	args := m.Called(ctx, userID, days, limit)
	r, _ := args.Get(0).([]*entities.TrendingSearch)
	return r, args.Error(1)
}

func (m *mockReporter) Stats(ctx context.Context, userID int64) (*entities.SearchStats, error) {
	args := m.Called(ctx, userID)
	r, _ := args.Get(0).(*entities.SearchStats)
	return r, args.Error(1)
}

func TestAnalyticsHandler_PopularDefaultsLimit(t *testing.T) {
	reporter := new(mockReporter)
	reporter.On("Popular", mock.Anything, testUserID, 0).
		Return([]*entities.PopularSearch{{QueryText: "meeting", SearchCount: 4}}, nil)
	handler := handlers.NewAnalyticsHandler(reporter)

	w := httptest.NewRecorder()
	handler.Popular(w, authedRequest("GET", "/api/search/analytics/popular", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	var popular []entities.PopularSearch
	require.NoError(t, json.NewDecoder(w.Body).Decode(&popular))
	require.Len(t, popular, 1)
	assert.Equal(t, "meeting", popular[0].QueryText)
}

func TestAnalyticsHandler_PopularBadLimit(t *testing.T) {
	reporter := new(mockReporter)
	handler := handlers.NewAnalyticsHandler(reporter)

	w := httptest.NewRecorder()
	handler.Popular(w, authedRequest("GET", "/api/search/analytics/popular?limit=lots", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	reporter.AssertNotCalled(t, "Popular", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyticsHandler_SuggestionsPassesPrefix(t *testing.T) {
	reporter := new(mockReporter)
	reporter.On("Suggestions", mock.Anything, testUserID, "mee", 3).
		Return([]*entities.SearchSuggestion{{QueryText: "meeting", RelevanceScore: 0.84}}, nil)
	handler := handlers.NewAnalyticsHandler(reporter)

	w := httptest.NewRecorder()
	handler.Suggestions(w, authedRequest("GET", "/api/search/analytics/suggestions?prefix=mee&limit=3", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	reporter.AssertExpectations(t)
}

func TestAnalyticsHandler_SuggestionsValidation(t *testing.T) {
	reporter := new(mockReporter)
	reporter.On("Suggestions", mock.Anything, testUserID, "", 0).
		Return(nil, apperrors.NewValidationError("prefix must be between 1 and 100 characters"))
	handler := handlers.NewAnalyticsHandler(reporter)

	w := httptest.NewRecorder()
	handler.Suggestions(w, authedRequest("GET", "/api/search/analytics/suggestions", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "prefix must be between 1 and 100 characters", decodeError(t, w))
}

func TestAnalyticsHandler_Trending(t *testing.T) {
	reporter := new(mockReporter)
	reporter.On("Trending", mock.Anything, testUserID, 14, 0).
		Return([]*entities.TrendingSearch{{QueryText: "roadmap", TrendDirection: entities.TrendUp, RecentSearchCount: 3}}, nil)
	handler := handlers.NewAnalyticsHandler(reporter)

	w := httptest.NewRecorder()
	handler.Trending(w, authedRequest("GET", "/api/search/analytics/trending?days=14", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	var trending []entities.TrendingSearch
	require.NoError(t, json.NewDecoder(w.Body).Decode(&trending))
	require.Len(t, trending, 1)
	assert.Equal(t, entities.TrendUp, trending[0].TrendDirection)
}

func TestAnalyticsHandler_Stats(t *testing.T) {
	most := "meeting"
	reporter := new(mockReporter)
	reporter.On("Stats", mock.Anything, testUserID).
		Return(&entities.SearchStats{TotalSearches: 12, UniqueQueries: 3, MostSearchedQuery: &most}, nil)
	handler := handlers.NewAnalyticsHandler(reporter)

	w := httptest.NewRecorder()
	handler.Stats(w, authedRequest("GET", "/api/search/analytics/stats", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	var stats map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, float64(12), stats["total_searches"])
	assert.Equal(t, "meeting", stats["most_searched_query"])
	assert.Nil(t, stats["avg_results_per_search"])
}

func TestAnalyticsHandler_RequiresIdentity(t *testing.T) {
	handler := handlers.NewAnalyticsHandler(new(mockReporter))

	w := httptest.NewRecorder()
	handler.Stats(w, httptest.NewRequest("GET", "/api/search/analytics/stats", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
