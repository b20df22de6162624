package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/domain/repositories"
	"github.com/notes2gogo/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

const (
	savedSearchesTable  = "saved_searches"
	pqUniqueViolation   = "23505"
	savedSearchNameUniq = "a saved search named %q already exists"
)

var savedSearchColumns = []interface{}{
	"id", "user_id", "name", "search_query", "created_at", "last_used_at", "use_count",
}

// SavedSearchAdapter implements SavedSearchRepository; search_query is stored as JSONB
type SavedSearchAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSavedSearchAdapter creates a new saved search adapter
func NewSavedSearchAdapter(client *postgres.Client) repositories.SavedSearchRepository {
	return &SavedSearchAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts search and fills its ID and CreatedAt
func (a *SavedSearchAdapter) Create(ctx context.Context, search *entities.SavedSearch) error {
	payload, err := json.Marshal(search.SearchQuery)
	if err != nil {
		return apperrors.NewInternalError("failed to encode search query", err)
	}

	query, args, err := a.db.Insert(savedSearchesTable).
		Prepared(true).
		Rows(goqu.Record{
			"user_id":      search.UserID,
			"name":         search.Name,
			"search_query": string(payload),
			"created_at":   search.CreatedAt,
			"use_count":    search.UseCount,
		}).
		Returning("id").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&search.ID); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf(savedSearchNameUniq, search.Name))
		}
		return apperrors.NewInternalError("failed to create saved search", err)
	}
	return nil
}

// GetByID returns the caller's saved search
func (a *SavedSearchAdapter) GetByID(ctx context.Context, userID, id int64) (*entities.SavedSearch, error) {
	query, args, err := a.db.From(savedSearchesTable).
		Prepared(true).
		Select(savedSearchColumns...).
		Where(goqu.Ex{"id": id, "user_id": userID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	search, err := scanSavedSearch(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("saved search with id %d not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get saved search", err)
	}
	return search, nil
}

// List returns the caller's saved searches, most recently used first
func (a *SavedSearchAdapter) List(ctx context.Context, userID int64) ([]*entities.SavedSearch, error) {
	query, args, err := a.db.From(savedSearchesTable).
		Prepared(true).
		Select(savedSearchColumns...).
		Where(goqu.Ex{"user_id": userID}).
		Order(
			goqu.I("last_used_at").Desc().NullsLast(),
			goqu.I("created_at").Desc(),
			goqu.I("id").Desc(),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list saved searches", err)
	}
	defer rows.Close()

	searches := []*entities.SavedSearch{}
	for rows.Next() {
		search, err := scanSavedSearch(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan saved search", err)
		}
		searches = append(searches, search)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate saved searches", err)
	}
	return searches, nil
}

// Update stores the name and search query of search
func (a *SavedSearchAdapter) Update(ctx context.Context, search *entities.SavedSearch) error {
	payload, err := json.Marshal(search.SearchQuery)
	if err != nil {
		return apperrors.NewInternalError("failed to encode search query", err)
	}

	query, args, err := a.db.Update(savedSearchesTable).
		Prepared(true).
		Set(goqu.Record{
			"name":         search.Name,
			"search_query": string(payload),
		}).
		Where(goqu.Ex{"id": search.ID, "user_id": search.UserID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf(savedSearchNameUniq, search.Name))
		}
		return apperrors.NewInternalError("failed to update saved search", err)
	}
	return requireAffected(result, search.ID)
}

// Delete removes the caller's saved search
func (a *SavedSearchAdapter) Delete(ctx context.Context, userID, id int64) error {
	query, args, err := a.db.Delete(savedSearchesTable).
		Prepared(true).
		Where(goqu.Ex{"id": id, "user_id": userID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete saved search", err)
	}
	return requireAffected(result, id)
}

// MarkUsed records an execution of the saved search
func (a *SavedSearchAdapter) MarkUsed(ctx context.Context, userID, id int64, at time.Time) error {
	query, args, err := a.db.Update(savedSearchesTable).
		Prepared(true).
		Set(goqu.Record{
			"last_used_at": at,
			"use_count":    goqu.L("use_count + 1"),
		}).
		Where(goqu.Ex{"id": id, "user_id": userID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to mark saved search used", err)
	}
	return requireAffected(result, id)
}

func scanSavedSearch(row rowScanner) (*entities.SavedSearch, error) {
	search := &entities.SavedSearch{}
	var payload []byte
	var lastUsed sql.NullTime
	err := row.Scan(
		&search.ID,
		&search.UserID,
		&search.Name,
		&payload,
		&search.CreatedAt,
		&lastUsed,
		&search.UseCount,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &search.SearchQuery); err != nil {
		return nil, fmt.Errorf("decode search_query: %w", err)
	}
	if lastUsed.Valid {
		search.LastUsedAt = &lastUsed.Time
	}
	return search, nil
}

func requireAffected(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("saved search with id %d not found", id))
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
