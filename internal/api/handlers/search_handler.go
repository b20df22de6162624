package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/notes2gogo/backend/internal/domain/entities"
	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

// NoteSearcher defines the search operation used by the handler
type NoteSearcher interface {
	Execute(ctx context.Context, ownerID int64, req *entities.SearchRequest) (*entities.SearchResponse, error)
}

// SearchHandler handles note search requests
type SearchHandler struct {
	searcher NoteSearcher
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher NoteSearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search handles POST /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req entities.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	h.execute(w, r, userID, &req)
}

// SearchQuery handles GET /api/search
func (h *SearchHandler) SearchQuery(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	req, err := searchRequestFromQuery(r.URL.Query())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	h.execute(w, r, userID, req)
}

func (h *SearchHandler) execute(w http.ResponseWriter, r *http.Request, userID int64, req *entities.SearchRequest) {
	resp, err := h.searcher.Execute(r.Context(), userID, req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// searchRequestFromQuery maps GET parameters onto a SearchRequest. Timestamps
// must be explicit; natural language belongs in the q operators.
func searchRequestFromQuery(values url.Values) (*entities.SearchRequest, error) {
	req := &entities.SearchRequest{
		Query:       values.Get("q"),
		Tags:        splitCSV(values.Get("tags")),
		TagMode:     entities.TagFilterMode(values.Get("tag_mode")),
		ExcludeTags: splitCSV(values.Get("exclude_tags")),
		NoteType:    entities.NoteType(values.Get("note_type")),
		SortBy:      entities.SortBy(values.Get("sort_by")),
	}

	var err error
	if req.CreatedAfter, err = queryTime(values, "created_after"); err != nil {
		return nil, err
	}
	if req.CreatedBefore, err = queryTime(values, "created_before"); err != nil {
		return nil, err
	}
	if req.UpdatedAfter, err = queryTime(values, "updated_after"); err != nil {
		return nil, err
	}
	if req.UpdatedBefore, err = queryTime(values, "updated_before"); err != nil {
		return nil, err
	}

	if raw := values.Get("title_only"); raw != "" {
		if req.TitleOnly, err = strconv.ParseBool(raw); err != nil {
			return nil, apperrors.NewValidationError("title_only must be a boolean")
		}
	}
	if raw := values.Get("page"); raw != "" {
		if req.Page, err = strconv.Atoi(raw); err != nil {
			return nil, apperrors.NewValidationError("page must be an integer")
		}
	}
	if raw := values.Get("per_page"); raw != "" {
		if req.PerPage, err = strconv.Atoi(raw); err != nil {
			return nil, apperrors.NewValidationError("per_page must be an integer")
		}
	}

	return req, nil
}

func queryTime(values url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := dateparse.ParseStrict(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid " + name + ": " + raw)
	}
	return &t, nil
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
