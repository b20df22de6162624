package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/notes2gogo/backend/internal/application/services"
	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/domain/repositories"
	"github.com/notes2gogo/backend/pkg/clock"
	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

const testUserID int64 = 42

func floatPtr(v float64) *float64 { return &v }

func TestSearchAnalyticsService_RecordCreatesRecord(t *testing.T) {
	repo := newMemoryAnalyticsRepository()
	clk := clock.NewFixed(parserNow)
	svc := services.NewSearchAnalyticsService(repo, clk, 0)

	require.NoError(t, svc.Record(context.Background(), testUserID, "  meeting notes ", 3))

	rec := repo.get(testUserID, "meeting notes")
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.SearchCount)
	assert.Equal(t, 3, rec.LastResultCount)
	require.NotNil(t, rec.AvgResultCount)
	assert.Equal(t, 3.0, *rec.AvgResultCount)
	assert.Equal(t, parserNow, rec.LastSearchedAt)
}

func TestSearchAnalyticsService_RecordDebounce(t *testing.T) {
	repo := newMemoryAnalyticsRepository()
	clk := clock.NewFixed(parserNow)
	svc := services.NewSearchAnalyticsService(repo, clk, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, testUserID, "meeting", 3))

	clk.Advance(2 * time.Second)
	require.NoError(t, svc.Record(ctx, testUserID, "meeting", 7))

	rec := repo.get(testUserID, "meeting")
	assert.Equal(t, 1, rec.SearchCount)
	assert.Equal(t, 7, rec.LastResultCount)
	assert.Equal(t, parserNow.Add(2*time.Second), rec.LastSearchedAt)
	assert.Equal(t, 3.0, *rec.AvgResultCount)

	clk.Advance(6 * time.Second)
	require.NoError(t, svc.Record(ctx, testUserID, "meeting", 5))

	rec = repo.get(testUserID, "meeting")
	assert.Equal(t, 2, rec.SearchCount)
	assert.Equal(t, 5, rec.LastResultCount)
	assert.InDelta(t, 3.4, *rec.AvgResultCount, 1e-9)
}

func TestSearchAnalyticsService_RecordExactlyAtWindowCounts(t *testing.T) {
	repo := newMemoryAnalyticsRepository()
	clk := clock.NewFixed(parserNow)
	svc := services.NewSearchAnalyticsService(repo, clk, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, testUserID, "meeting", 1))
	clk.Advance(5 * time.Second)
	require.NoError(t, svc.Record(ctx, testUserID, "meeting", 1))

	assert.Equal(t, 2, repo.get(testUserID, "meeting").SearchCount)
}

func TestSearchAnalyticsService_RecordBlankIsNoop(t *testing.T) {
	repo := new(MockSearchAnalyticsRepository)
	svc := services.NewSearchAnalyticsService(repo, clock.NewFixed(parserNow), 0)

	require.NoError(t, svc.Record(context.Background(), testUserID, "   ", 4))
	repo.AssertNotCalled(t, "Track", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchAnalyticsService_RecordReturnsStoreError(t *testing.T) {
	repo := new(MockSearchAnalyticsRepository)
	repo.On("Track", mock.Anything, testUserID, "meeting", mock.Anything).Return(errors.New("deadlock detected"))
	svc := services.NewSearchAnalyticsService(repo, clock.NewFixed(parserNow), 0)

	err := svc.Record(context.Background(), testUserID, "meeting", 4)
	assert.EqualError(t, err, "deadlock detected")
	repo.AssertExpectations(t)
}

func TestApplySearch_NilAverageStartsFromResultCount(t *testing.T) {
	existing := &entities.SearchAnalytics{
		UserID:         testUserID,
		QueryText:      "q",
		SearchCount:    4,
		LastSearchedAt: parserNow.Add(-time.Hour),
	}

	next := services.ApplySearch(existing, testUserID, "q", 9, parserNow, 5*time.Second)

	assert.Equal(t, 5, next.SearchCount)
	assert.Equal(t, 9.0, *next.AvgResultCount)
	assert.Nil(t, existing.AvgResultCount)
	assert.Equal(t, 4, existing.SearchCount)
}

func TestSearchAnalyticsService_Popular(t *testing.T) {
	repo := new(MockSearchAnalyticsRepository)
	repo.On("ListTop", mock.Anything, testUserID, 10).Return([]*entities.SearchAnalytics{
		{QueryText: "meeting", SearchCount: 9, LastSearchedAt: parserNow, AvgResultCount: floatPtr(2)},
		{QueryText: "groceries", SearchCount: 3, LastSearchedAt: parserNow},
	}, nil)
	svc := services.NewSearchAnalyticsService(repo, clock.NewFixed(parserNow), 0)

	popular, err := svc.Popular(context.Background(), testUserID, 0)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "meeting", popular[0].QueryText)
	assert.Equal(t, 2.0, *popular[0].AvgResultCount)
	assert.Nil(t, popular[1].AvgResultCount)

	_, err = svc.Popular(context.Background(), testUserID, 51)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	repo.AssertExpectations(t)
}

func TestSearchAnalyticsService_Suggestions(t *testing.T) {
	repo := newMemoryAnalyticsRepository()
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "meetup", SearchCount: 5, LastSearchedAt: parserNow.AddDate(0, 0, -40)})
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "Meeting", SearchCount: 1, LastSearchedAt: parserNow.AddDate(0, 0, -15)})
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "meeting notes", SearchCount: 12, LastSearchedAt: parserNow.Add(-time.Hour)})
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "groceries", SearchCount: 30, LastSearchedAt: parserNow})
	repo.put(&entities.SearchAnalytics{UserID: 7, QueryText: "meeting room", SearchCount: 30, LastSearchedAt: parserNow})
	svc := services.NewSearchAnalyticsService(repo, clock.NewFixed(parserNow), 0)

	suggestions, err := svc.Suggestions(context.Background(), testUserID, " meet ", 0)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)

	assert.Equal(t, "meeting notes", suggestions[0].QueryText)
	assert.InDelta(t, 1.0, suggestions[0].RelevanceScore, 1e-9)
	assert.Equal(t, "Meeting", suggestions[1].QueryText)
	assert.InDelta(t, 0.34, suggestions[1].RelevanceScore, 1e-9)
	assert.Equal(t, "meetup", suggestions[2].QueryText)
	assert.InDelta(t, 0.2, suggestions[2].RelevanceScore, 1e-9)

	limited, err := svc.Suggestions(context.Background(), testUserID, "meet", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSearchAnalyticsService_SuggestionsValidation(t *testing.T) {
	svc := services.NewSearchAnalyticsService(newMemoryAnalyticsRepository(), clock.NewFixed(parserNow), 0)

	_, err := svc.Suggestions(context.Background(), testUserID, "   ", 5)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = svc.Suggestions(context.Background(), testUserID, "me", 21)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestSearchAnalyticsService_Trending(t *testing.T) {
	repo := newMemoryAnalyticsRepository()
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "stable", SearchCount: 4, LastSearchedAt: parserNow.AddDate(0, 0, -3)})
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "hot", SearchCount: 10, LastSearchedAt: parserNow})
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "cooling", SearchCount: 10, LastSearchedAt: parserNow.AddDate(0, 0, -6)})
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "stale", SearchCount: 5, LastSearchedAt: parserNow.AddDate(0, 0, -10)})
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "once", SearchCount: 1, LastSearchedAt: parserNow})
	svc := services.NewSearchAnalyticsService(repo, clock.NewFixed(parserNow), 0)

	trending, err := svc.Trending(context.Background(), testUserID, 0, 0)
	require.NoError(t, err)
	require.Len(t, trending, 2)

	assert.Equal(t, "hot", trending[0].QueryText)
	assert.Equal(t, 10, trending[0].RecentSearchCount)
	assert.Equal(t, entities.TrendUp, trending[0].TrendDirection)

	assert.Equal(t, "stable", trending[1].QueryText)
	assert.Equal(t, 2, trending[1].RecentSearchCount)
	assert.Equal(t, entities.TrendStable, trending[1].TrendDirection)

	_, err = svc.Trending(context.Background(), testUserID, 31, 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestSearchAnalyticsService_TrendingEmptyIsNotNil(t *testing.T) {
	svc := services.NewSearchAnalyticsService(newMemoryAnalyticsRepository(), clock.NewFixed(parserNow), 0)

	trending, err := svc.Trending(context.Background(), testUserID, 7, 10)
	require.NoError(t, err)
	assert.NotNil(t, trending)
	assert.Empty(t, trending)
}

func TestSearchAnalyticsService_StatsBoundaries(t *testing.T) {
	repo := new(MockSearchAnalyticsRepository)
	todayStart := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	weekStart := parserNow.AddDate(0, 0, -7)
	most := "meeting"
	repo.On("Totals", mock.Anything, testUserID, todayStart, weekStart).Return(&repositories.AnalyticsTotals{
		TotalSearches:     12,
		UniqueQueries:     3,
		AvgResultCount:    floatPtr(4.5),
		MostSearchedQuery: &most,
		SearchesToday:     2,
		SearchesThisWeek:  9,
	}, nil)
	svc := services.NewSearchAnalyticsService(repo, clock.NewFixed(parserNow), 0)

	stats, err := svc.Stats(context.Background(), testUserID)
	require.NoError(t, err)

	assert.Equal(t, 12, stats.TotalSearches)
	assert.Equal(t, 3, stats.UniqueQueries)
	assert.Equal(t, 4.5, *stats.AvgResultsPerSearch)
	assert.Equal(t, "meeting", *stats.MostSearchedQuery)
	assert.Equal(t, 2, stats.SearchesToday)
	assert.Equal(t, 9, stats.SearchesThisWeek)
	repo.AssertExpectations(t)
}

func TestSearchAnalyticsService_StatsFromMemory(t *testing.T) {
	repo := newMemoryAnalyticsRepository()
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "a", SearchCount: 3, LastSearchedAt: time.Date(2024, 3, 14, 1, 0, 0, 0, time.UTC), AvgResultCount: floatPtr(2)})
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "b", SearchCount: 2, LastSearchedAt: parserNow.AddDate(0, 0, -3), AvgResultCount: floatPtr(4)})
	repo.put(&entities.SearchAnalytics{UserID: testUserID, QueryText: "c", SearchCount: 5, LastSearchedAt: parserNow.AddDate(0, 0, -20)})
	svc := services.NewSearchAnalyticsService(repo, clock.NewFixed(parserNow), 0)

	stats, err := svc.Stats(context.Background(), testUserID)
	require.NoError(t, err)

	assert.Equal(t, 10, stats.TotalSearches)
	assert.Equal(t, 3, stats.UniqueQueries)
	assert.Equal(t, 3.0, *stats.AvgResultsPerSearch)
	assert.Equal(t, "c", *stats.MostSearchedQuery)
	assert.Equal(t, 3, stats.SearchesToday)
	assert.Equal(t, 5, stats.SearchesThisWeek)
}
