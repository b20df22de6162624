package entities

import "time"

// MaxSavedSearchNameLength matches the saved_searches.name column
const MaxSavedSearchNameLength = 100

// SavedSearch is a named SearchRequest persisted for a user
type SavedSearch struct {
	ID          int64         `json:"id" db:"id"`
	UserID      int64         `json:"user_id" db:"user_id"`
	Name        string        `json:"name" db:"name"`
	SearchQuery SearchRequest `json:"search_query" db:"search_query"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	LastUsedAt  *time.Time    `json:"last_used_at" db:"last_used_at"`
	UseCount    int           `json:"use_count" db:"use_count"`
}
