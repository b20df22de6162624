package entities

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

// MaxQueryLength matches the width of the analytics query_text column
const MaxQueryLength = 500

// SortBy selects result ordering
type SortBy string

const (
	SortByRelevance   SortBy = "relevance"
	SortByCreatedDesc SortBy = "created_desc"
	SortByCreatedAsc  SortBy = "created_asc"
	SortByUpdatedDesc SortBy = "updated_desc"
	SortByUpdatedAsc  SortBy = "updated_asc"
	SortByTitleAsc    SortBy = "title_asc"
	SortByTitleDesc   SortBy = "title_desc"
)

// Valid reports whether s is a known sort key
func (s SortBy) Valid() bool {
	switch s {
	case SortByRelevance, SortByCreatedDesc, SortByCreatedAsc,
		SortByUpdatedDesc, SortByUpdatedAsc, SortByTitleAsc, SortByTitleDesc:
		return true
	}
	return false
}

// TagFilterMode controls how SearchRequest.Tags are combined
type TagFilterMode string

const (
	TagModeAnd     TagFilterMode = "and"
	TagModeOr      TagFilterMode = "or"
	TagModeExclude TagFilterMode = "exclude"
)

// Valid reports whether m is a known tag filter mode
func (m TagFilterMode) Valid() bool {
	return m == TagModeAnd || m == TagModeOr || m == TagModeExclude
}

// PageLimits bounds SearchRequest pagination
type PageLimits struct {
	DefaultPerPage int
	MaxPerPage     int
}

// DefaultPageLimits returns per_page 10 bounded to 100
func DefaultPageLimits() PageLimits {
	return PageLimits{DefaultPerPage: 10, MaxPerPage: 100}
}

// SearchRequest is the caller-supplied search input
type SearchRequest struct {
	Query          string        `json:"query"`
	Tags           []string      `json:"tags,omitempty"`
	TagMode        TagFilterMode `json:"tag_mode,omitempty"`
	ExcludeTags    []string      `json:"exclude_tags,omitempty"`
	NoteType       NoteType      `json:"note_type,omitempty"`
	CreatedAfter   *time.Time    `json:"created_after,omitempty"`
	CreatedBefore  *time.Time    `json:"created_before,omitempty"`
	UpdatedAfter   *time.Time    `json:"updated_after,omitempty"`
	UpdatedBefore  *time.Time    `json:"updated_before,omitempty"`
	TitleOnly      bool          `json:"title_only"`
	HasAttachments *bool         `json:"has_attachments,omitempty"`
	SortBy         SortBy        `json:"sort_by,omitempty"`
	Page           int           `json:"page"`
	PerPage        int           `json:"per_page"`
}

// Normalize fills defaults and validates the request in place.
// Tags are trimmed and lowercased. tag_mode=exclude moves Tags into ExcludeTags.
func (r *SearchRequest) Normalize(limits PageLimits) error {
	if utf8.RuneCountInString(r.Query) > MaxQueryLength {
		return apperrors.NewValidationError(fmt.Sprintf("query must be at most %d characters", MaxQueryLength))
	}

	if r.SortBy == "" {
		r.SortBy = SortByRelevance
	}
	if !r.SortBy.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid sort_by: %q", r.SortBy))
	}

	if r.TagMode == "" {
		r.TagMode = TagModeAnd
	}
	if !r.TagMode.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid tag_mode: %q", r.TagMode))
	}

	if r.NoteType != "" && !r.NoteType.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid note_type: %q", r.NoteType))
	}

	if r.Page < 1 {
		r.Page = 1
	}
	if r.PerPage == 0 {
		r.PerPage = limits.DefaultPerPage
	}
	if r.PerPage < 1 || r.PerPage > limits.MaxPerPage {
		return apperrors.NewValidationError(fmt.Sprintf("per_page must be between 1 and %d", limits.MaxPerPage))
	}

	r.Tags = MergeTags(r.Tags)
	r.ExcludeTags = MergeTags(r.ExcludeTags)
	if r.TagMode == TagModeExclude {
		r.ExcludeTags = MergeTags(r.ExcludeTags, r.Tags)
		r.Tags = nil
	}

	return nil
}

// Offset returns the zero-based row offset of the requested page
func (r *SearchRequest) Offset() int {
	return (r.Page - 1) * r.PerPage
}

// MergeTags trims, lowercases and de-duplicates the union of lists in
// first-seen order. Blank names are dropped.
func MergeTags(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, name := range list {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// MatchLocation names where a search term was found in a note
type MatchLocation string

const (
	MatchTitle   MatchLocation = "title"
	MatchContent MatchLocation = "content"
	MatchTags    MatchLocation = "tags"
)

// SearchResultItem is one note in a search response
type SearchResultItem struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	NoteType       NoteType        `json:"note_type"`
	Snippet        string          `json:"snippet"`
	Tags           []string        `json:"tags"`
	UserID         int64           `json:"user_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	RelevanceScore float64         `json:"relevance_score"`
	MatchLocations []MatchLocation `json:"match_locations"`
}

// HasMatch reports whether loc is among the item's match locations
func (i *SearchResultItem) HasMatch(loc MatchLocation) bool {
	for _, l := range i.MatchLocations {
		if l == loc {
			return true
		}
	}
	return false
}

// SearchResponse is the paginated search result envelope
type SearchResponse struct {
	Results         []*SearchResultItem `json:"results"`
	Total           int                 `json:"total"`
	Page            int                 `json:"page"`
	PerPage         int                 `json:"per_page"`
	HasNext         bool                `json:"has_next"`
	HasPrev         bool                `json:"has_prev"`
	ExecutionTimeMs float64             `json:"execution_time_ms"`
	Query           string              `json:"query"`
}

// NewSearchResponse builds the envelope and its pagination flags
func NewSearchResponse(req *SearchRequest, results []*SearchResultItem, total int, elapsed time.Duration) *SearchResponse {
	if results == nil {
		results = []*SearchResultItem{}
	}
	return &SearchResponse{
		Results:         results,
		Total:           total,
		Page:            req.Page,
		PerPage:         req.PerPage,
		HasNext:         req.Page*req.PerPage < total,
		HasPrev:         req.Page > 1,
		ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000.0,
		Query:           req.Query,
	}
}
