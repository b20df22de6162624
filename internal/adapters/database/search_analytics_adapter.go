package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/domain/repositories"
	"github.com/notes2gogo/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

const searchAnalyticsTable = "search_analytics"

var analyticsColumns = []interface{}{
	"id", "user_id", "query_text", "search_count", "last_searched_at",
	"avg_result_count", "last_result_count", "created_at",
}

// SearchAnalyticsAdapter implements SearchAnalyticsRepository
type SearchAnalyticsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSearchAnalyticsAdapter creates a new search analytics adapter
func NewSearchAnalyticsAdapter(client *postgres.Client) repositories.SearchAnalyticsRepository {
	return &SearchAnalyticsAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalytics(row rowScanner) (*entities.SearchAnalytics, error) {
	rec := &entities.SearchAnalytics{}
	var avg sql.NullFloat64
	var last sql.NullInt64
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.QueryText,
		&rec.SearchCount,
		&rec.LastSearchedAt,
		&avg,
		&last,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if avg.Valid {
		rec.AvgResultCount = &avg.Float64
	}
	rec.LastResultCount = int(last.Int64)
	return rec, nil
}

// Track applies update to the locked (userID, queryText) row inside one transaction
func (a *SearchAnalyticsAdapter) Track(ctx context.Context, userID int64, queryText string, update repositories.AnalyticsUpdate) error {
	selectSQL, selectArgs, err := a.db.From(searchAnalyticsTable).
		Prepared(true).
		Select(analyticsColumns...).
		Where(goqu.Ex{"user_id": userID, "query_text": queryText}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	existing, err := scanAnalytics(tx.QueryRowContext(ctx, selectSQL, selectArgs...))
	if errors.Is(err, sql.ErrNoRows) {
		existing = nil
	} else if err != nil {
		return apperrors.NewInternalError("failed to load search analytics", err)
	}

	next := update(existing)
	if next == nil {
		return tx.Commit()
	}

	var query string
	var args []interface{}
	if existing == nil {
		query, args, err = a.db.Insert(searchAnalyticsTable).
			Prepared(true).
			Rows(goqu.Record{
				"user_id":           userID,
				"query_text":        queryText,
				"search_count":      next.SearchCount,
				"last_searched_at":  next.LastSearchedAt,
				"avg_result_count":  nullableFloat(next.AvgResultCount),
				"last_result_count": next.LastResultCount,
				"created_at":        next.CreatedAt,
			}).
			ToSQL()
	} else {
		query, args, err = a.db.Update(searchAnalyticsTable).
			Prepared(true).
			Set(goqu.Record{
				"search_count":      next.SearchCount,
				"last_searched_at":  next.LastSearchedAt,
				"avg_result_count":  nullableFloat(next.AvgResultCount),
				"last_result_count": next.LastResultCount,
			}).
			Where(goqu.Ex{"id": existing.ID}).
			ToSQL()
	}
	if err != nil {
		return apperrors.NewInternalError("failed to build write query", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to store search analytics", err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit search analytics", err)
	}
	return nil
}

// ListTop returns the most searched queries
func (a *SearchAnalyticsAdapter) ListTop(ctx context.Context, userID int64, limit int) ([]*entities.SearchAnalytics, error) {
	ds := a.owned(userID).
		Order(goqu.I("search_count").Desc(), goqu.I("last_searched_at").Desc(), goqu.I("id").Asc()).
		Limit(uint(limit))
	return a.list(ctx, ds)
}

// ListByPrefix matches query_text case-insensitively; LIKE wildcards in prefix are literal
func (a *SearchAnalyticsAdapter) ListByPrefix(ctx context.Context, userID int64, prefix string) ([]*entities.SearchAnalytics, error) {
	ds := a.owned(userID).
		Where(goqu.I("query_text").ILike(escapeLike(prefix) + "%")).
		Order(goqu.I("last_searched_at").Desc(), goqu.I("id").Asc())
	return a.list(ctx, ds)
}

// ListWithMinCount returns records searched at least minCount times
func (a *SearchAnalyticsAdapter) ListWithMinCount(ctx context.Context, userID int64, minCount int) ([]*entities.SearchAnalytics, error) {
	ds := a.owned(userID).
		Where(goqu.I("search_count").Gte(minCount)).
		Order(goqu.I("search_count").Desc(), goqu.I("id").Asc())
	return a.list(ctx, ds)
}

// Totals aggregates the caller's records in one pass plus a lookup of the top query
func (a *SearchAnalyticsAdapter) Totals(ctx context.Context, userID int64, todayStart, weekStart time.Time) (*repositories.AnalyticsTotals, error) {
	aggSQL, aggArgs, err := a.db.From(searchAnalyticsTable).
		Prepared(true).
		Select(
			goqu.L("COALESCE(SUM(search_count), 0)"),
			goqu.COUNT(goqu.Star()),
			goqu.AVG("avg_result_count"),
			goqu.L("COALESCE(SUM(search_count) FILTER (WHERE last_searched_at >= ?), 0)", todayStart),
			goqu.L("COALESCE(SUM(search_count) FILTER (WHERE last_searched_at >= ?), 0)", weekStart),
		).
		Where(goqu.Ex{"user_id": userID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build stats query", err)
	}

	totals := &repositories.AnalyticsTotals{}
	var avg sql.NullFloat64
	err = a.client.DB().QueryRowContext(ctx, aggSQL, aggArgs...).Scan(
		&totals.TotalSearches,
		&totals.UniqueQueries,
		&avg,
		&totals.SearchesToday,
		&totals.SearchesThisWeek,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to compute search stats", err)
	}
	if avg.Valid {
		totals.AvgResultCount = &avg.Float64
	}

	topSQL, topArgs, err := a.owned(userID).
		Select("query_text").
		Order(goqu.I("search_count").Desc(), goqu.I("last_searched_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build stats query", err)
	}

	var top string
	err = a.client.DB().QueryRowContext(ctx, topSQL, topArgs...).Scan(&top)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, apperrors.NewInternalError("failed to find most searched query", err)
	default:
		totals.MostSearchedQuery = &top
	}

	return totals, nil
}

func (a *SearchAnalyticsAdapter) owned(userID int64) *goqu.SelectDataset {
	return a.db.From(searchAnalyticsTable).
		Prepared(true).
		Select(analyticsColumns...).
		Where(goqu.Ex{"user_id": userID})
}

func (a *SearchAnalyticsAdapter) list(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.SearchAnalytics, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list search analytics", err)
	}
	defer rows.Close()

	var records []*entities.SearchAnalytics
	for rows.Next() {
		rec, err := scanAnalytics(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan search analytics", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate search analytics", err)
	}
	return records, nil
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
