package entities

import (
	"encoding/json"
	"time"
)

// NoteType discriminates plain-text notes from structured documents
type NoteType string

const (
	NoteTypeText       NoteType = "text"
	NoteTypeStructured NoteType = "structured"
)

// Valid reports whether t is a known note type
func (t NoteType) Valid() bool {
	return t == NoteTypeText || t == NoteTypeStructured
}

// Note is a user's note as read by the search path
type Note struct {
	ID                int64           `json:"id" db:"id"`
	UserID            int64           `json:"user_id" db:"user_id"`
	FolderID          *int64          `json:"folder_id,omitempty" db:"folder_id"`
	Title             string          `json:"title" db:"title"`
	NoteType          NoteType        `json:"note_type" db:"note_type"`
	ContentText       string          `json:"content_text,omitempty" db:"content_text"`
	ContentStructured json.RawMessage `json:"content_structured,omitempty" db:"content_structured"`
	Tags              []string        `json:"tags"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// ContentString returns the textual rendering of the body. Structured
// documents render as their JSON text.
func (n *Note) ContentString() string {
	if n.ContentText != "" {
		return n.ContentText
	}
	if len(n.ContentStructured) > 0 && string(n.ContentStructured) != "null" {
		return string(n.ContentStructured)
	}
	return ""
}

// Tag is a user-scoped label attached to notes
type Tag struct {
	ID     int64  `json:"id" db:"id"`
	UserID int64  `json:"user_id" db:"user_id"`
	Name   string `json:"name" db:"name"`
}
