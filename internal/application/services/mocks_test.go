package services_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/domain/repositories"
)

// MockNoteSearchRepository is a testify mock of repositories.NoteSearchRepository
type MockNoteSearchRepository struct {
	mock.Mock
}

func (m *MockNoteSearchRepository) Search(ctx context.Context, q repositories.NoteQuery) ([]*entities.Note, int, error) {
	args := m.Called(ctx, q)
	notes, _ := args.Get(0).([]*entities.Note)
	return notes, args.Int(1), args.Error(2)
}

// MockSearchAnalyticsRepository is a testify mock of repositories.SearchAnalyticsRepository
type MockSearchAnalyticsRepository struct {
	mock.Mock
}

func (m *MockSearchAnalyticsRepository) Track(ctx context.Context, userID int64, queryText string, update repositories.AnalyticsUpdate) error {
	args := m.Called(ctx, userID, queryText, update)
	return args.Error(0)
}

func (m *MockSearchAnalyticsRepository) ListTop(ctx context.Context, userID int64, limit int) ([]*entities.SearchAnalytics, error) {
	args := m.Called(ctx, userID, limit)
	records, _ := args.Get(0).([]*entities.SearchAnalytics)
	return records, args.Error(1)
}

func (m *MockSearchAnalyticsRepository) ListByPrefix(ctx context.Context, userID int64, prefix string) ([]*entities.SearchAnalytics, error) {
	args := m.Called(ctx, userID, prefix)
	records, _ := args.Get(0).([]*entities.SearchAnalytics)
	return records, args.Error(1)
}

func (m *MockSearchAnalyticsRepository) ListWithMinCount(ctx context.Context, userID int64, minCount int) ([]*entities.SearchAnalytics, error) {
	args := m.Called(ctx, userID, minCount)
	records, _ := args.Get(0).([]*entities.SearchAnalytics)
	return records, args.Error(1)
}

func (m *MockSearchAnalyticsRepository) Totals(ctx context.Context, userID int64, todayStart, weekStart time.Time) (*repositories.AnalyticsTotals, error) {
	args := m.Called(ctx, userID, todayStart, weekStart)
	totals, _ := args.Get(0).(*repositories.AnalyticsTotals)
	return totals, args.Error(1)
}

// memoryAnalyticsRepository keeps records in a map keyed by user and query text
type memoryAnalyticsRepository struct {
	mu      sync.Mutex
	records map[string]*entities.SearchAnalytics
	nextID  int64
}

func newMemoryAnalyticsRepository() *memoryAnalyticsRepository {
	return &memoryAnalyticsRepository{records: make(map[string]*entities.SearchAnalytics)}
}

func analyticsKey(userID int64, text string) string {
	return fmt.Sprintf("%d|%s", userID, text)
}

func (r *memoryAnalyticsRepository) get(userID int64, text string) *entities.SearchAnalytics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[analyticsKey(userID, text)]
}

func (r *memoryAnalyticsRepository) put(rec *entities.SearchAnalytics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	r.records[analyticsKey(rec.UserID, rec.QueryText)] = rec
}

func (r *memoryAnalyticsRepository) Track(ctx context.Context, userID int64, queryText string, update repositories.AnalyticsUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := analyticsKey(userID, queryText)
	var existing *entities.SearchAnalytics
	if rec, ok := r.records[key]; ok {
		copied := *rec
		existing = &copied
	}

	next := update(existing)
	if next == nil {
		return nil
	}
	if existing == nil {
		r.nextID++
		next.ID = r.nextID
	}
	r.records[key] = next
	return nil
}

func (r *memoryAnalyticsRepository) owned(userID int64) []*entities.SearchAnalytics {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.SearchAnalytics
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryAnalyticsRepository) ListTop(ctx context.Context, userID int64, limit int) ([]*entities.SearchAnalytics, error) {
	out := r.owned(userID)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SearchCount != out[j].SearchCount {
			return out[i].SearchCount > out[j].SearchCount
		}
		return out[i].LastSearchedAt.After(out[j].LastSearchedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryAnalyticsRepository) ListByPrefix(ctx context.Context, userID int64, prefix string) ([]*entities.SearchAnalytics, error) {
	var out []*entities.SearchAnalytics
	for _, rec := range r.owned(userID) {
		if strings.HasPrefix(strings.ToLower(rec.QueryText), strings.ToLower(prefix)) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryAnalyticsRepository) ListWithMinCount(ctx context.Context, userID int64, minCount int) ([]*entities.SearchAnalytics, error) {
	var out []*entities.SearchAnalytics
	for _, rec := range r.owned(userID) {
		if rec.SearchCount >= minCount {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryAnalyticsRepository) Totals(ctx context.Context, userID int64, todayStart, weekStart time.Time) (*repositories.AnalyticsTotals, error) {
	totals := &repositories.AnalyticsTotals{}
	var avgSum float64
	var avgN int
	var top *entities.SearchAnalytics
	for _, rec := range r.owned(userID) {
		totals.TotalSearches += rec.SearchCount
		totals.UniqueQueries++
		if rec.AvgResultCount != nil {
			avgSum += *rec.AvgResultCount
			avgN++
		}
		if top == nil || rec.SearchCount > top.SearchCount {
			top = rec
		}
		if !rec.LastSearchedAt.Before(todayStart) {
			totals.SearchesToday += rec.SearchCount
		}
		if !rec.LastSearchedAt.Before(weekStart) {
			totals.SearchesThisWeek += rec.SearchCount
		}
	}
	if avgN > 0 {
		avg := avgSum / float64(avgN)
		totals.AvgResultCount = &avg
	}
	if top != nil {
		q := top.QueryText
		totals.MostSearchedQuery = &q
	}
	return totals, nil
}

// MockSavedSearchRepository is a testify mock of repositories.SavedSearchRepository
type MockSavedSearchRepository struct {
	mock.Mock
}

func (m *MockSavedSearchRepository) Create(ctx context.Context, search *entities.SavedSearch) error {
	args := m.Called(ctx, search)
	return args.Error(0)
}

func (m *MockSavedSearchRepository) GetByID(ctx context.Context, userID, id int64) (*entities.SavedSearch, error) {
	args := m.Called(ctx, userID, id)
	saved, _ := args.Get(0).(*entities.SavedSearch)
	return saved, args.Error(1)
}

func (m *MockSavedSearchRepository) List(ctx context.Context, userID int64) ([]*entities.SavedSearch, error) {
	args := m.Called(ctx, userID)
	saved, _ := args.Get(0).([]*entities.SavedSearch)
	return saved, args.Error(1)
}

func (m *MockSavedSearchRepository) Update(ctx context.Context, search *entities.SavedSearch) error {
	args := m.Called(ctx, search)
	return args.Error(0)
}

func (m *MockSavedSearchRepository) Delete(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockSavedSearchRepository) MarkUsed(ctx context.Context, userID, id int64, at time.Time) error {
	args := m.Called(ctx, userID, id, at)
	return args.Error(0)
}
