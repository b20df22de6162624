package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/domain/providers"
	"github.com/notes2gogo/backend/internal/domain/repositories"
	"github.com/notes2gogo/backend/internal/infrastructure/observability"
)

// CachedSavedSearchAdapter wraps a SavedSearchRepository with read-through caching
type CachedSavedSearchAdapter struct {
	adapter repositories.SavedSearchRepository
	cache   providers.CacheProvider
	ttl     int
}

// NewCachedSavedSearchAdapter creates a new cached saved search adapter. ttlSeconds applies to every entry.
func NewCachedSavedSearchAdapter(adapter repositories.SavedSearchRepository, cache providers.CacheProvider, ttlSeconds int) repositories.SavedSearchRepository {
	return &CachedSavedSearchAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttlSeconds,
	}
}

// Cache key generators
func savedSearchCacheKey(userID, id int64) string {
	return fmt.Sprintf("saved_search:%d:%d", userID, id)
}

func savedSearchListCacheKey(userID int64) string {
	return fmt.Sprintf("saved_searches:list:%d", userID)
}

// GetByID retrieves a saved search with caching
func (a *CachedSavedSearchAdapter) GetByID(ctx context.Context, userID, id int64) (*entities.SavedSearch, error) {
	key := savedSearchCacheKey(userID, id)

	var search entities.SavedSearch
	if a.load(ctx, key, &search) {
		return &search, nil
	}

	found, err := a.adapter.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, key, found)
	return found, nil
}

// List retrieves the caller's saved searches with caching
func (a *CachedSavedSearchAdapter) List(ctx context.Context, userID int64) ([]*entities.SavedSearch, error) {
	key := savedSearchListCacheKey(userID)

	var searches []*entities.SavedSearch
	if a.load(ctx, key, &searches) {
		return searches, nil
	}

	found, err := a.adapter.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.store(ctx, key, found)
	return found, nil
}

// Create creates a saved search and invalidates the owner's list
func (a *CachedSavedSearchAdapter) Create(ctx context.Context, search *entities.SavedSearch) error {
	if err := a.adapter.Create(ctx, search); err != nil {
		return err
	}
	a.invalidate(ctx, savedSearchListCacheKey(search.UserID))
	return nil
}

// Update updates a saved search and invalidates its cache
func (a *CachedSavedSearchAdapter) Update(ctx context.Context, search *entities.SavedSearch) error {
	if err := a.adapter.Update(ctx, search); err != nil {
		return err
	}
	a.invalidate(ctx, savedSearchCacheKey(search.UserID, search.ID), savedSearchListCacheKey(search.UserID))
	return nil
}

// Delete deletes a saved search and invalidates its cache
func (a *CachedSavedSearchAdapter) Delete(ctx context.Context, userID, id int64) error {
	if err := a.adapter.Delete(ctx, userID, id); err != nil {
		return err
	}
	a.invalidate(ctx, savedSearchCacheKey(userID, id), savedSearchListCacheKey(userID))
	return nil
}

// MarkUsed records usage; last_used_at and use_count change so both entries are dropped
func (a *CachedSavedSearchAdapter) MarkUsed(ctx context.Context, userID, id int64, at time.Time) error {
	if err := a.adapter.MarkUsed(ctx, userID, id, at); err != nil {
		return err
	}
	a.invalidate(ctx, savedSearchCacheKey(userID, id), savedSearchListCacheKey(userID))
	return nil
}

func (a *CachedSavedSearchAdapter) load(ctx context.Context, key string, dest interface{}) bool {
	cached, err := a.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(cached, dest); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached saved search")
		return false
	}
	return true
}

func (a *CachedSavedSearchAdapter) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to cache saved search")
	}
}

func (a *CachedSavedSearchAdapter) invalidate(ctx context.Context, keys ...string) {
	if err := a.cache.Delete(ctx, keys...); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Strs("keys", keys).Msg("Failed to invalidate saved search cache")
	}
}
