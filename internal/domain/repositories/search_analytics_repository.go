package repositories

import (
	"context"
	"time"

	"github.com/notes2gogo/backend/internal/domain/entities"
)

// AnalyticsUpdate receives the current record (nil when none exists) and
// returns the record to persist, or nil to leave storage unchanged.
type AnalyticsUpdate func(existing *entities.SearchAnalytics) *entities.SearchAnalytics

// AnalyticsTotals holds the aggregates behind the stats report
type AnalyticsTotals struct {
	TotalSearches     int
	UniqueQueries     int
	AvgResultCount    *float64
	MostSearchedQuery *string
	SearchesToday     int
	SearchesThisWeek  int
}

// SearchAnalyticsRepository persists SearchAnalytics records
type SearchAnalyticsRepository interface {
	// Track loads the record for (userID, queryText) under a row lock, applies
	// update and stores the result in the same transaction.
	Track(ctx context.Context, userID int64, queryText string, update AnalyticsUpdate) error

	// ListTop returns records ordered by search_count desc, last_searched_at desc
	ListTop(ctx context.Context, userID int64, limit int) ([]*entities.SearchAnalytics, error)

	// ListByPrefix returns records whose query text starts with prefix, case-insensitively
	ListByPrefix(ctx context.Context, userID int64, prefix string) ([]*entities.SearchAnalytics, error)

	// ListWithMinCount returns records searched at least minCount times
	ListWithMinCount(ctx context.Context, userID int64, minCount int) ([]*entities.SearchAnalytics, error)

	// Totals computes the stats aggregates. Searches today and this week sum
	// search_count over records last searched at or after the given instants.
	Totals(ctx context.Context, userID int64, todayStart, weekStart time.Time) (*AnalyticsTotals, error)
}
