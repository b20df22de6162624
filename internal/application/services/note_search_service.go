package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/domain/repositories"
	"github.com/notes2gogo/backend/internal/infrastructure/observability"
	"github.com/notes2gogo/backend/pkg/clock"
	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

// Display score weights. They do not influence ordering.
const (
	titleMatchScore   = 2.0
	contentMatchScore = 1.0
	tagMatchScore     = 0.5
)

// AnalyticsRecorder receives one call per executed search
type AnalyticsRecorder interface {
	Record(ctx context.Context, userID int64, queryText string, resultCount int) error
}

// NoteSearchOptions tunes the search engine
type NoteSearchOptions struct {
	SnippetLength int
	Limits        entities.PageLimits
	Metrics       *observability.Metrics
}

// NoteSearchService runs parsed, filtered and ranked note searches
type NoteSearchService struct {
	repo      repositories.NoteSearchRepository
	parser    *SearchQueryParser
	analytics AnalyticsRecorder
	clock     clock.Clock
	opts      NoteSearchOptions
}

// NewNoteSearchService creates the search engine. analytics may be nil.
func NewNoteSearchService(
	repo repositories.NoteSearchRepository,
	parser *SearchQueryParser,
	analytics AnalyticsRecorder,
	c clock.Clock,
	opts NoteSearchOptions,
) *NoteSearchService {
	if c == nil {
		c = clock.System{}
	}
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = defaultSnippetLength
	}
	if opts.Limits.MaxPerPage == 0 {
		opts.Limits = entities.DefaultPageLimits()
	}
	return &NoteSearchService{
		repo:      repo,
		parser:    parser,
		analytics: analytics,
		clock:     c,
		opts:      opts,
	}
}

// Execute normalizes req, runs the search and wraps the page in a response envelope
func (s *NoteSearchService) Execute(ctx context.Context, ownerID int64, req *entities.SearchRequest) (*entities.SearchResponse, error) {
	start := s.clock.Now()
	results, total, err := s.Search(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}
	return entities.NewSearchResponse(req, results, total, s.clock.Now().Sub(start)), nil
}

// Search returns the requested page of the owner's matching notes and the
// total match count. Analytics failures are logged and never returned.
func (s *NoteSearchService) Search(ctx context.Context, ownerID int64, req *entities.SearchRequest) ([]*entities.SearchResultItem, int, error) {
	if err := req.Normalize(s.opts.Limits); err != nil {
		return nil, 0, err
	}

	ctx, span := observability.StartSpan(ctx, "NoteSearchService.Search")
	defer span.End()

	parsed := s.parser.Parse(req.Query)
	q := buildNoteQuery(ownerID, req, parsed)

	observability.SetSpanAttributes(span,
		attribute.Int64("user.id", ownerID),
		attribute.String("search.sort_by", string(req.SortBy)),
		attribute.Int("search.page", req.Page),
		attribute.Int("search.title_terms", len(q.TitleTerms)),
		attribute.Int("search.content_terms", len(q.ContentTerms)),
		attribute.Bool("search.has_text", parsed.HasTextTerms()),
	)

	notes, total, err := s.repo.Search(ctx, q)
	if err != nil {
		observability.RecordError(span, err)
		return nil, 0, apperrors.NewSearchError("search failed", err)
	}
	observability.RecordSearchMetric(ctx, s.opts.Metrics, string(req.SortBy), total)

	now := s.clock.Now()
	terms := parsed.SearchTerms()
	wanted := entities.MergeTags(parsed.Tags, req.Tags)

	results := make([]*entities.SearchResultItem, 0, len(notes))
	for _, note := range notes {
		results = append(results, s.resultItem(note, terms, wanted, now))
	}

	s.track(ctx, ownerID, req.Query, total)

	return results, total, nil
}

func (s *NoteSearchService) track(ctx context.Context, ownerID int64, query string, total int) {
	if s.analytics == nil {
		return
	}
	if err := s.analytics.Record(ctx, ownerID, query, total); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("query", query).
			Msg("failed to track search analytics")
	}
}

// buildNoteQuery merges parsed operators with the explicit request filters.
// Free text searches titles unless intitle: terms were given, and searches
// content unless the request is title-only.
func buildNoteQuery(ownerID int64, req *entities.SearchRequest, parsed *entities.ParsedQuery) repositories.NoteQuery {
	freeText := append(append([]string{}, parsed.ContentTerms...), parsed.QuotedPhrases...)

	q := repositories.NoteQuery{
		OwnerID:      ownerID,
		TitleTerms:   parsed.TitleTerms,
		RequiredTags: entities.MergeTags(parsed.Tags),
		ExcludeTags:  entities.MergeTags(parsed.ExcludeTags, req.ExcludeTags),
		NoteType:     req.NoteType,
		SortBy:       req.SortBy,
		Limit:        req.PerPage,
		Offset:       req.Offset(),
	}
	if len(q.TitleTerms) == 0 {
		q.TitleTerms = freeText
	}
	if !req.TitleOnly {
		q.ContentTerms = freeText
	}

	switch req.TagMode {
	case entities.TagModeOr:
		q.AnyTags = req.Tags
	default:
		q.RequiredTags = entities.MergeTags(q.RequiredTags, req.Tags)
	}

	q.Bounds = append(q.Bounds, parsedBounds(repositories.CreatedAt, parsed.Created)...)
	q.Bounds = append(q.Bounds, parsedBounds(repositories.UpdatedAt, parsed.Updated)...)
	q.Bounds = append(q.Bounds, requestBounds(repositories.CreatedAt, req.CreatedAfter, req.CreatedBefore)...)
	q.Bounds = append(q.Bounds, requestBounds(repositories.UpdatedAt, req.UpdatedAfter, req.UpdatedBefore)...)

	return q
}

// parsedBounds turns the after and before operators into bounds. An exact
// date is reported in the parsed query but does not filter.
func parsedBounds(field repositories.TimeField, f entities.DateFilters) []repositories.TimeBound {
	if f.Empty() {
		return nil
	}
	return requestBounds(field, f.After, f.Before)
}

func requestBounds(field repositories.TimeField, after, before *time.Time) []repositories.TimeBound {
	var bounds []repositories.TimeBound
	if after != nil {
		bounds = append(bounds, repositories.TimeBound{Field: field, At: *after})
	}
	if before != nil {
		bounds = append(bounds, repositories.TimeBound{Field: field, Before: true, At: *before})
	}
	return bounds
}

func (s *NoteSearchService) resultItem(note *entities.Note, terms, wanted []string, now time.Time) *entities.SearchResultItem {
	content := note.ContentString()
	locations := matchLocations(note, content, terms, wanted)

	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}

	item := &entities.SearchResultItem{
		ID:             note.ID,
		Title:          note.Title,
		NoteType:       note.NoteType,
		Snippet:        GenerateSnippet(content, terms, s.opts.SnippetLength),
		Tags:           tags,
		UserID:         note.UserID,
		CreatedAt:      note.CreatedAt,
		UpdatedAt:      note.UpdatedAt,
		MatchLocations: locations,
	}
	item.RelevanceScore = relevanceScore(item, now)
	return item
}

func matchLocations(note *entities.Note, content string, terms, wanted []string) []entities.MatchLocation {
	locations := []entities.MatchLocation{}
	if anyContainsFold(note.Title, terms) {
		locations = append(locations, entities.MatchTitle)
	}
	if anyContainsFold(content, terms) {
		locations = append(locations, entities.MatchContent)
	}
	if tagsMatch(note.Tags, terms, wanted) {
		locations = append(locations, entities.MatchTags)
	}
	return locations
}

func anyContainsFold(text string, terms []string) bool {
	for _, term := range terms {
		if containsFold(text, term) {
			return true
		}
	}
	return false
}

func tagsMatch(noteTags, terms, wanted []string) bool {
	for _, tag := range noteTags {
		for _, w := range wanted {
			if strings.EqualFold(tag, w) {
				return true
			}
		}
		if anyContainsFold(tag, terms) {
			return true
		}
	}
	return false
}

// relevanceScore is the display heuristic: match weights plus a recency bonus on updated_at
func relevanceScore(item *entities.SearchResultItem, now time.Time) float64 {
	score := 0.0
	if item.HasMatch(entities.MatchTitle) {
		score += titleMatchScore
	}
	if item.HasMatch(entities.MatchContent) {
		score += contentMatchScore
	}
	if item.HasMatch(entities.MatchTags) {
		score += tagMatchScore
	}

	switch days := wholeDays(now.Sub(item.UpdatedAt)); {
	case days < 7:
		score += 0.5
	case days < 30:
		score += 0.3
	case days < 90:
		score += 0.1
	}
	return score
}
