package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/domain/repositories"
	"github.com/notes2gogo/backend/internal/infrastructure/observability"
	"github.com/notes2gogo/backend/pkg/clock"
	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

// SearchExecutor runs a search request for an owner
type SearchExecutor interface {
	Execute(ctx context.Context, ownerID int64, req *entities.SearchRequest) (*entities.SearchResponse, error)
}

// SavedSearchUpdate carries the fields to change. Nil fields are kept.
type SavedSearchUpdate struct {
	Name        *string                 `json:"name,omitempty"`
	SearchQuery *entities.SearchRequest `json:"search_query,omitempty"`
}

// PageOverride replaces the stored page and page size on execution. Zero values keep the stored ones.
type PageOverride struct {
	Page    int `json:"page,omitempty"`
	PerPage int `json:"per_page,omitempty"`
}

// SavedSearchService manages named searches and runs them
type SavedSearchService struct {
	repo   repositories.SavedSearchRepository
	search SearchExecutor
	clock  clock.Clock
	limits entities.PageLimits
}

// NewSavedSearchService creates a new saved search service
func NewSavedSearchService(repo repositories.SavedSearchRepository, search SearchExecutor, c clock.Clock, limits entities.PageLimits) *SavedSearchService {
	if c == nil {
		c = clock.System{}
	}
	if limits.MaxPerPage == 0 {
		limits = entities.DefaultPageLimits()
	}
	return &SavedSearchService{repo: repo, search: search, clock: c, limits: limits}
}

// List returns the user's saved searches, most recently used first
func (s *SavedSearchService) List(ctx context.Context, userID int64) ([]*entities.SavedSearch, error) {
	searches, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if searches == nil {
		searches = []*entities.SavedSearch{}
	}
	return searches, nil
}

// Get returns one saved search owned by userID
func (s *SavedSearchService) Get(ctx context.Context, userID, id int64) (*entities.SavedSearch, error) {
	return s.repo.GetByID(ctx, userID, id)
}

// Create validates and stores a new saved search
func (s *SavedSearchService) Create(ctx context.Context, userID int64, name string, req entities.SearchRequest) (*entities.SavedSearch, error) {
	name, err := validSavedSearchName(name)
	if err != nil {
		return nil, err
	}
	if err := req.Normalize(s.limits); err != nil {
		return nil, err
	}

	search := &entities.SavedSearch{
		UserID:      userID,
		Name:        name,
		SearchQuery: req,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.Create(ctx, search); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Int64("saved_search_id", search.ID).
		Str("name", search.Name).
		Msg("saved search created")
	return search, nil
}

// Update changes the name and/or stored request of a saved search
func (s *SavedSearchService) Update(ctx context.Context, userID, id int64, update SavedSearchUpdate) (*entities.SavedSearch, error) {
	if update.Name == nil && update.SearchQuery == nil {
		return nil, apperrors.NewValidationError("name or search_query is required")
	}

	search, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name, err := validSavedSearchName(*update.Name)
		if err != nil {
			return nil, err
		}
		search.Name = name
	}
	if update.SearchQuery != nil {
		req := *update.SearchQuery
		if err := req.Normalize(s.limits); err != nil {
			return nil, err
		}
		search.SearchQuery = req
	}

	if err := s.repo.Update(ctx, search); err != nil {
		return nil, err
	}
	return search, nil
}

// Delete removes a saved search
func (s *SavedSearchService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}

// Execute loads a saved search, records the use and runs the stored request
func (s *SavedSearchService) Execute(ctx context.Context, userID, id int64, override *PageOverride) (*entities.SearchResponse, error) {
	search, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	req := search.SearchQuery
	if override != nil {
		if override.Page != 0 {
			req.Page = override.Page
		}
		if override.PerPage != 0 {
			req.PerPage = override.PerPage
		}
	}

	if err := s.repo.MarkUsed(ctx, userID, id, s.clock.Now().UTC()); err != nil {
		return nil, err
	}

	return s.search.Execute(ctx, userID, &req)
}

func validSavedSearchName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError("name is required")
	}
	if utf8.RuneCountInString(name) > entities.MaxSavedSearchNameLength {
		return "", apperrors.NewValidationError(fmt.Sprintf("name must be at most %d characters", entities.MaxSavedSearchNameLength))
	}
	return name, nil
}
