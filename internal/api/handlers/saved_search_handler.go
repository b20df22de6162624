package handlers

import (
	"context"
	"net/http"

	"github.com/notes2gogo/backend/internal/application/services"
	"github.com/notes2gogo/backend/internal/domain/entities"
)

// SavedSearchService defines the saved search operations used by the handler
type SavedSearchService interface {
	List(ctx context.Context, userID int64) ([]*entities.SavedSearch, error)
	Get(ctx context.Context, userID, id int64) (*entities.SavedSearch, error)
	Create(ctx context.Context, userID int64, name string, req entities.SearchRequest) (*entities.SavedSearch, error)
	Update(ctx context.Context, userID, id int64, update services.SavedSearchUpdate) (*entities.SavedSearch, error)
	Delete(ctx context.Context, userID, id int64) error
	Execute(ctx context.Context, userID, id int64, override *services.PageOverride) (*entities.SearchResponse, error)
}

// SavedSearchHandler handles saved search requests
type SavedSearchHandler struct {
	service SavedSearchService
}

// NewSavedSearchHandler creates a new saved search handler
func NewSavedSearchHandler(service SavedSearchService) *SavedSearchHandler {
	return &SavedSearchHandler{service: service}
}

type createSavedSearchRequest struct {
	Name        string                 `json:"name"`
	SearchQuery entities.SearchRequest `json:"search_query"`
}

// List handles GET /api/search/saved
func (h *SavedSearchHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	searches, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"saved_searches": searches,
	})
}

// Create handles POST /api/search/saved
func (h *SavedSearchHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var payload createSavedSearchRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	search, err := h.service.Create(r.Context(), userID, payload.Name, payload.SearchQuery)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, search)
}

// Get handles GET /api/search/saved/{id}
func (h *SavedSearchHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	search, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, search)
}

// Update handles PUT /api/search/saved/{id}
func (h *SavedSearchHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var update services.SavedSearchUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	search, err := h.service.Update(r.Context(), userID, id, update)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, search)
}

// Delete handles DELETE /api/search/saved/{id}
func (h *SavedSearchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Execute handles POST /api/search/saved/{id}/execute
func (h *SavedSearchHandler) Execute(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	var override services.PageOverride
	if err := decodeJSON(r, &override); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	resp, err := h.service.Execute(r.Context(), userID, id, &override)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
