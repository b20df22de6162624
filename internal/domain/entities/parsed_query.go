package entities

import "time"

// DateFilters holds the bounds extracted from a created: or updated: operator
type DateFilters struct {
	After  *time.Time `json:"after,omitempty" yaml:"after,omitempty"`
	Before *time.Time `json:"before,omitempty" yaml:"before,omitempty"`
	Exact  *time.Time `json:"exact,omitempty" yaml:"exact,omitempty"`
}

// Empty reports whether no bound was extracted
func (f DateFilters) Empty() bool {
	return f.After == nil && f.Before == nil && f.Exact == nil
}

// NearQuery is a proximity pair from "a NEAR/5 b"
type NearQuery struct {
	Left     string `json:"left" yaml:"left"`
	Distance int    `json:"distance" yaml:"distance"`
	Right    string `json:"right" yaml:"right"`
}

// TodoStatus filters on checklist completion
type TodoStatus string

const (
	TodoComplete   TodoStatus = "complete"
	TodoIncomplete TodoStatus = "incomplete"
)

// ParsedQuery is the structured form of a raw search string
type ParsedQuery struct {
	TitleTerms    []string    `json:"title_terms" yaml:"title_terms"`
	ContentTerms  []string    `json:"content_terms" yaml:"content_terms"`
	Tags          []string    `json:"tags" yaml:"tags"`
	ExcludeTags   []string    `json:"exclude_tags" yaml:"exclude_tags"`
	Created       DateFilters `json:"created_filters" yaml:"created_filters"`
	Updated       DateFilters `json:"updated_filters" yaml:"updated_filters"`
	HasFilters    []string    `json:"has_filters" yaml:"has_filters"`
	TodoStatus    TodoStatus  `json:"todo_status,omitempty" yaml:"todo_status,omitempty"`
	QuotedPhrases []string    `json:"quoted_phrases" yaml:"quoted_phrases"`
	NearQueries   []NearQuery `json:"near_queries" yaml:"near_queries"`
}

// SearchTerms returns title terms, content terms and quoted phrases in that order
func (p *ParsedQuery) SearchTerms() []string {
	terms := make([]string, 0, len(p.TitleTerms)+len(p.ContentTerms)+len(p.QuotedPhrases))
	terms = append(terms, p.TitleTerms...)
	terms = append(terms, p.ContentTerms...)
	terms = append(terms, p.QuotedPhrases...)
	return terms
}

// HasTextTerms reports whether anything remains for full-text matching
func (p *ParsedQuery) HasTextTerms() bool {
	return len(p.TitleTerms) > 0 || len(p.ContentTerms) > 0 || len(p.QuotedPhrases) > 0
}
