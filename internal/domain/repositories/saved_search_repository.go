package repositories

import (
	"context"
	"time"

	"github.com/notes2gogo/backend/internal/domain/entities"
)

// SavedSearchRepository persists saved searches. Every call is scoped to the
// owner; a row owned by someone else behaves as missing.
type SavedSearchRepository interface {
	Create(ctx context.Context, search *entities.SavedSearch) error
	GetByID(ctx context.Context, userID, id int64) (*entities.SavedSearch, error)
	List(ctx context.Context, userID int64) ([]*entities.SavedSearch, error)
	Update(ctx context.Context, search *entities.SavedSearch) error
	Delete(ctx context.Context, userID, id int64) error

	// MarkUsed sets last_used_at and increments use_count
	MarkUsed(ctx context.Context, userID, id int64, at time.Time) error
}
