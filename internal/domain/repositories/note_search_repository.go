package repositories

import (
	"context"
	"time"

	"github.com/notes2gogo/backend/internal/domain/entities"
)

// TimeField names a note timestamp column usable in a bound
type TimeField string

const (
	CreatedAt TimeField = "created_at"
	UpdatedAt TimeField = "updated_at"
)

// TimeBound is an inclusive bound on a note timestamp. Before=false means
// the column must be at or after At.
type TimeBound struct {
	Field  TimeField
	Before bool
	At     time.Time
}

// NoteQuery is the store-level search built by the search engine
type NoteQuery struct {
	OwnerID int64

	// TitleTerms feeds the title index predicate. ContentTerms feeds the
	// content index predicate. Predicates present are OR'd together; with
	// neither, every owner note is eligible and rank is constant.
	TitleTerms   []string
	ContentTerms []string

	// RequiredTags must all be present; AnyTags needs at least one;
	// ExcludeTags removes notes carrying any of them.
	RequiredTags []string
	AnyTags      []string
	ExcludeTags  []string

	NoteType entities.NoteType
	Bounds   []TimeBound

	SortBy entities.SortBy
	Limit  int
	Offset int
}

// NoteSearchRepository executes note searches against the note store
type NoteSearchRepository interface {
	// Search returns the requested page of notes with their tag names and
	// the total number of matches before pagination.
	Search(ctx context.Context, q NoteQuery) ([]*entities.Note, int, error)
}
