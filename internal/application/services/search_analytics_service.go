package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/domain/repositories"
	"github.com/notes2gogo/backend/internal/infrastructure/observability"
	"github.com/notes2gogo/backend/pkg/clock"
	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

// DefaultAnalyticsDebounce is the window inside which a repeated query is not counted again
const DefaultAnalyticsDebounce = 5 * time.Second

const (
	avgDecay  = 0.8
	avgWeight = 0.2

	suggestionRecencyWeight   = 0.6
	suggestionFrequencyWeight = 0.4
	suggestionDecayDays       = 30.0
	suggestionFrequencyCap    = 10.0

	trendingMinCount = 2
	trendUpShare     = 0.5
	trendDownShare   = 0.2
)

// report bounds
const (
	defaultPopularLimit    = 10
	maxPopularLimit        = 50
	defaultSuggestionLimit = 5
	maxSuggestionLimit     = 20
	maxPrefixLength        = 100
	defaultTrendingDays    = 7
	maxTrendingDays        = 30
	defaultTrendingLimit   = 10
	maxTrendingLimit       = 50
)

// SearchAnalyticsService tracks per-user query usage and serves the read-side reports
type SearchAnalyticsService struct {
	repo     repositories.SearchAnalyticsRepository
	clock    clock.Clock
	debounce time.Duration
}

// NewSearchAnalyticsService creates a tracker. A non-positive debounce uses DefaultAnalyticsDebounce.
func NewSearchAnalyticsService(repo repositories.SearchAnalyticsRepository, c clock.Clock, debounce time.Duration) *SearchAnalyticsService {
	if c == nil {
		c = clock.System{}
	}
	if debounce <= 0 {
		debounce = DefaultAnalyticsDebounce
	}
	return &SearchAnalyticsService{repo: repo, clock: c, debounce: debounce}
}

// Record counts one execution of queryText by userID. Blank text is ignored.
func (s *SearchAnalyticsService) Record(ctx context.Context, userID int64, queryText string, resultCount int) error {
	text := strings.TrimSpace(queryText)
	if text == "" {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, "SearchAnalyticsService.Record")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.Int64("user.id", userID),
		attribute.Int("search.result_count", resultCount),
	)

	now := s.clock.Now().UTC()
	err := s.repo.Track(ctx, userID, text, func(existing *entities.SearchAnalytics) *entities.SearchAnalytics {
		return ApplySearch(existing, userID, text, resultCount, now, s.debounce)
	})
	if err != nil {
		observability.RecordError(span, err)
		return err
	}
	return nil
}

// ApplySearch returns the record after one search at now. A repeat inside
// debounce only refreshes the timestamp and last result count.
func ApplySearch(existing *entities.SearchAnalytics, userID int64, text string, resultCount int, now time.Time, debounce time.Duration) *entities.SearchAnalytics {
	if existing == nil {
		avg := float64(resultCount)
		return &entities.SearchAnalytics{
			UserID:          userID,
			QueryText:       text,
			SearchCount:     1,
			LastSearchedAt:  now,
			AvgResultCount:  &avg,
			LastResultCount: resultCount,
			CreatedAt:       now,
		}
	}

	next := *existing
	next.LastSearchedAt = now
	next.LastResultCount = resultCount

	if now.Sub(existing.LastSearchedAt) < debounce {
		return &next
	}

	next.SearchCount++
	var avg float64
	if existing.AvgResultCount == nil {
		avg = float64(resultCount)
	} else {
		avg = *existing.AvgResultCount*avgDecay + float64(resultCount)*avgWeight
	}
	next.AvgResultCount = &avg
	return &next
}

// Popular returns the most searched queries, most recent first among equals
func (s *SearchAnalyticsService) Popular(ctx context.Context, userID int64, limit int) ([]*entities.PopularSearch, error) {
	limit, err := boundedLimit("limit", limit, defaultPopularLimit, maxPopularLimit)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListTop(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	popular := make([]*entities.PopularSearch, 0, len(records))
	for _, r := range records {
		popular = append(popular, &entities.PopularSearch{
			QueryText:      r.QueryText,
			SearchCount:    r.SearchCount,
			LastSearchedAt: r.LastSearchedAt,
			AvgResultCount: r.AvgResultCount,
		})
	}
	return popular, nil
}

// Suggestions completes prefix from past queries, scored 60% on recency
// (zero after 30 days) and 40% on frequency (capped at 10 searches).
func (s *SearchAnalyticsService) Suggestions(ctx context.Context, userID int64, prefix string, limit int) ([]*entities.SearchSuggestion, error) {
	prefix = strings.TrimSpace(prefix)
	if n := utf8.RuneCountInString(prefix); n < 1 || n > maxPrefixLength {
		return nil, apperrors.NewValidationError(fmt.Sprintf("prefix must be between 1 and %d characters", maxPrefixLength))
	}
	limit, err := boundedLimit("limit", limit, defaultSuggestionLimit, maxSuggestionLimit)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListByPrefix(ctx, userID, prefix)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	suggestions := make([]*entities.SearchSuggestion, 0, len(records))
	for _, r := range records {
		days := float64(wholeDays(now.Sub(r.LastSearchedAt)))
		recency := math.Max(0, 1-days/suggestionDecayDays)
		frequency := math.Min(1, float64(r.SearchCount)/suggestionFrequencyCap)

		suggestions = append(suggestions, &entities.SearchSuggestion{
			QueryText:      r.QueryText,
			SearchCount:    r.SearchCount,
			LastSearchedAt: r.LastSearchedAt,
			RelevanceScore: recency*suggestionRecencyWeight + frequency*suggestionFrequencyWeight,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].RelevanceScore > suggestions[j].RelevanceScore
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// Trending estimates recent activity for queries searched at least twice
// and returns those trending up or stable.
func (s *SearchAnalyticsService) Trending(ctx context.Context, userID int64, days, limit int) ([]*entities.TrendingSearch, error) {
	days, err := boundedLimit("days", days, defaultTrendingDays, maxTrendingDays)
	if err != nil {
		return nil, err
	}
	limit, err = boundedLimit("limit", limit, defaultTrendingLimit, maxTrendingLimit)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListWithMinCount(ctx, userID, trendingMinCount)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cutoff := now.AddDate(0, 0, -days)

	var trending []*entities.TrendingSearch
	for _, r := range records {
		recent := estimateRecentSearches(r, now, cutoff, days)
		direction := classifyTrend(recent, r.SearchCount)
		if direction == entities.TrendDown || recent == 0 {
			continue
		}
		trending = append(trending, &entities.TrendingSearch{
			QueryText:         r.QueryText,
			SearchCount:       r.SearchCount,
			RecentSearchCount: recent,
			TrendDirection:    direction,
			LastSearchedAt:    r.LastSearchedAt,
		})
	}

	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].RecentSearchCount > trending[j].RecentSearchCount
	})
	if len(trending) > limit {
		trending = trending[:limit]
	}
	if trending == nil {
		trending = []*entities.TrendingSearch{}
	}
	return trending, nil
}

func estimateRecentSearches(r *entities.SearchAnalytics, now, cutoff time.Time, days int) int {
	if r.LastSearchedAt.Before(cutoff) {
		return 0
	}
	ratio := math.Min(1, float64(wholeDays(now.Sub(r.LastSearchedAt)))/float64(days))
	return max(1, int(float64(r.SearchCount)*(1-ratio)))
}

func classifyTrend(recent, total int) entities.TrendDirection {
	switch {
	case float64(recent) > float64(total)*trendUpShare:
		return entities.TrendUp
	case float64(recent) < float64(total)*trendDownShare:
		return entities.TrendDown
	default:
		return entities.TrendStable
	}
}

// Stats summarises the caller's records. "Today" starts at UTC midnight and
// "this week" is the trailing seven days.
func (s *SearchAnalyticsService) Stats(ctx context.Context, userID int64) (*entities.SearchStats, error) {
	now := s.clock.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)

	totals, err := s.repo.Totals(ctx, userID, todayStart, weekStart)
	if err != nil {
		return nil, err
	}

	return &entities.SearchStats{
		TotalSearches:       totals.TotalSearches,
		UniqueQueries:       totals.UniqueQueries,
		AvgResultsPerSearch: totals.AvgResultCount,
		MostSearchedQuery:   totals.MostSearchedQuery,
		SearchesToday:       totals.SearchesToday,
		SearchesThisWeek:    totals.SearchesThisWeek,
	}, nil
}

func boundedLimit(name string, value, def, maxValue int) (int, error) {
	if value == 0 {
		return def, nil
	}
	if value < 1 || value > maxValue {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s must be between 1 and %d", name, maxValue))
	}
	return value, nil
}

// wholeDays floors d to days, rounding toward negative infinity
func wholeDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}
