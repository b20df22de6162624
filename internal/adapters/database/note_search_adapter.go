package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/domain/repositories"
	"github.com/notes2gogo/backend/internal/infrastructure/clients/postgres"
	"github.com/notes2gogo/backend/internal/infrastructure/observability"
	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

const (
	tsTitleMatch   = "n.title_tsv @@ plainto_tsquery('english', ?)"
	tsContentMatch = "n.content_tsv @@ plainto_tsquery('english', ?)"
	tsTitleRank    = "COALESCE(ts_rank(n.title_tsv, plainto_tsquery('english', ?)), 0) * 2.0"
	tsContentRank  = "COALESCE(ts_rank(n.content_tsv, plainto_tsquery('english', ?)), 0)"
)

// NoteSearchAdapter implements NoteSearchRepository on the Postgres full-text indexes
type NoteSearchAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewNoteSearchAdapter creates a new note search adapter. metrics may be nil.
func NewNoteSearchAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.NoteSearchRepository {
	return &NoteSearchAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// Search counts all matches, then loads the requested page with tag names
func (a *NoteSearchAdapter) Search(ctx context.Context, q repositories.NoteQuery) ([]*entities.Note, int, error) {
	start := time.Now()
	defer func() { observability.RecordDBMetric(ctx, a.metrics, "notes.search", time.Since(start)) }()

	filtered := a.filtered(q)

	countSQL, countArgs, err := filtered.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var total int
	if err := a.client.DB().QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to count notes", err)
	}
	if total == 0 {
		return []*entities.Note{}, 0, nil
	}

	pageSQL, pageArgs, err := filtered.
		Select(
			"n.id", "n.user_id", "n.folder_id", "n.title", "n.note_type",
			"n.content_text", "n.content_structured",
			goqu.L("COALESCE(?, '{}')", a.tagNames()).As("tags"),
			"n.created_at", "n.updated_at",
		).
		Order(orderFor(q)...).
		Limit(uint(q.Limit)).
		Offset(uint(q.Offset)).
		ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build search query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to search notes", err)
	}
	defer rows.Close()

	notes := []*entities.Note{}
	for rows.Next() {
		note := &entities.Note{}
		var folderID sql.NullInt64
		var contentText sql.NullString
		var structured []byte

		err := rows.Scan(
			&note.ID,
			&note.UserID,
			&folderID,
			&note.Title,
			&note.NoteType,
			&contentText,
			&structured,
			pq.Array(&note.Tags),
			&note.CreatedAt,
			&note.UpdatedAt,
		)
		if err != nil {
			return nil, 0, apperrors.NewInternalError("failed to scan note", err)
		}

		if folderID.Valid {
			note.FolderID = &folderID.Int64
		}
		note.ContentText = contentText.String
		if len(structured) > 0 {
			note.ContentStructured = structured
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to iterate notes", err)
	}

	return notes, total, nil
}

// filtered applies every predicate of q to the owner's notes
func (a *NoteSearchAdapter) filtered(q repositories.NoteQuery) *goqu.SelectDataset {
	ds := a.db.From(goqu.T("notes").As("n")).
		Prepared(true).
		Where(goqu.I("n.user_id").Eq(q.OwnerID))

	var text []exp.Expression
	if len(q.TitleTerms) > 0 {
		text = append(text, goqu.L(tsTitleMatch, tsTerms(q.TitleTerms)))
	}
	if len(q.ContentTerms) > 0 {
		text = append(text, goqu.L(tsContentMatch, tsTerms(q.ContentTerms)))
	}
	if len(text) > 0 {
		ds = ds.Where(goqu.Or(text...))
	}

	for _, tag := range q.RequiredTags {
		ds = ds.Where(goqu.L("EXISTS ?", a.tagSubquery(goqu.Func("lower", goqu.I("t.name")).Eq(tag))))
	}
	if len(q.AnyTags) > 0 {
		ds = ds.Where(goqu.L("EXISTS ?", a.tagSubquery(goqu.Func("lower", goqu.I("t.name")).In(q.AnyTags))))
	}
	if len(q.ExcludeTags) > 0 {
		ds = ds.Where(goqu.L("NOT EXISTS ?", a.tagSubquery(goqu.Func("lower", goqu.I("t.name")).In(q.ExcludeTags))))
	}

	if q.NoteType != "" {
		ds = ds.Where(goqu.I("n.note_type").Eq(string(q.NoteType)))
	}

	for _, b := range q.Bounds {
		col := goqu.I("n." + string(b.Field))
		if b.Before {
			ds = ds.Where(col.Lte(b.At))
		} else {
			ds = ds.Where(col.Gte(b.At))
		}
	}

	return ds
}

func (a *NoteSearchAdapter) tagSubquery(cond exp.Expression) *goqu.SelectDataset {
	return a.db.From(goqu.T("note_tags").As("nt")).
		Join(goqu.T("tags").As("t"), goqu.On(goqu.I("t.id").Eq(goqu.I("nt.tag_id")))).
		Select(goqu.L("1")).
		Where(goqu.I("nt.note_id").Eq(goqu.I("n.id")), cond)
}

func (a *NoteSearchAdapter) tagNames() *goqu.SelectDataset {
	return a.db.From(goqu.T("note_tags").As("nt")).
		Join(goqu.T("tags").As("t"), goqu.On(goqu.I("t.id").Eq(goqu.I("nt.tag_id")))).
		Select(goqu.L("array_agg(t.name ORDER BY t.name)")).
		Where(goqu.I("nt.note_id").Eq(goqu.I("n.id")))
}

// rankExpr weights title matches double. Without text terms rank is constant.
func rankExpr(q repositories.NoteQuery) exp.LiteralExpression {
	var parts []string
	var args []interface{}
	if len(q.TitleTerms) > 0 {
		parts = append(parts, tsTitleRank)
		args = append(args, tsTerms(q.TitleTerms))
	}
	if len(q.ContentTerms) > 0 {
		parts = append(parts, tsContentRank)
		args = append(args, tsTerms(q.ContentTerms))
	}
	if len(parts) == 0 {
		return goqu.L("1.0")
	}
	return goqu.L("("+strings.Join(parts, " + ")+")", args...)
}

// orderFor maps a sort key to ORDER BY terms; id breaks every tie
func orderFor(q repositories.NoteQuery) []exp.OrderedExpression {
	switch q.SortBy {
	case entities.SortByCreatedDesc:
		return []exp.OrderedExpression{goqu.I("n.created_at").Desc(), goqu.I("n.id").Desc()}
	case entities.SortByCreatedAsc:
		return []exp.OrderedExpression{goqu.I("n.created_at").Asc(), goqu.I("n.id").Asc()}
	case entities.SortByUpdatedDesc:
		return []exp.OrderedExpression{goqu.I("n.updated_at").Desc(), goqu.I("n.id").Desc()}
	case entities.SortByUpdatedAsc:
		return []exp.OrderedExpression{goqu.I("n.updated_at").Asc(), goqu.I("n.id").Asc()}
	case entities.SortByTitleAsc:
		return []exp.OrderedExpression{goqu.Func("lower", goqu.I("n.title")).Asc(), goqu.I("n.id").Asc()}
	case entities.SortByTitleDesc:
		return []exp.OrderedExpression{goqu.Func("lower", goqu.I("n.title")).Desc(), goqu.I("n.id").Desc()}
	default:
		return []exp.OrderedExpression{rankExpr(q).Desc(), goqu.I("n.updated_at").Desc(), goqu.I("n.id").Desc()}
	}
}

func tsTerms(terms []string) string {
	return strings.Join(terms, " ")
}
