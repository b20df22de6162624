package entities

import "time"

// SearchAnalytics is the per-user usage counter for one normalized query text
type SearchAnalytics struct {
	ID              int64     `json:"id" db:"id"`
	UserID          int64     `json:"user_id" db:"user_id"`
	QueryText       string    `json:"query_text" db:"query_text"`
	SearchCount     int       `json:"search_count" db:"search_count"`
	LastSearchedAt  time.Time `json:"last_searched_at" db:"last_searched_at"`
	AvgResultCount  *float64  `json:"avg_result_count" db:"avg_result_count"`
	LastResultCount int       `json:"last_result_count" db:"last_result_count"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// PopularSearch is a row of the popular report
type PopularSearch struct {
	QueryText      string    `json:"query_text"`
	SearchCount    int       `json:"search_count"`
	LastSearchedAt time.Time `json:"last_searched_at"`
	AvgResultCount *float64  `json:"avg_result_count"`
}

// SearchSuggestion is a prefix completion ranked by recency and frequency
type SearchSuggestion struct {
	QueryText      string    `json:"query_text"`
	SearchCount    int       `json:"search_count"`
	LastSearchedAt time.Time `json:"last_searched_at"`
	RelevanceScore float64   `json:"relevance_score"`
}

// TrendDirection classifies recent activity against total activity
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// TrendingSearch is a row of the trending report
type TrendingSearch struct {
	QueryText         string         `json:"query_text"`
	SearchCount       int            `json:"search_count"`
	RecentSearchCount int            `json:"recent_search_count"`
	TrendDirection    TrendDirection `json:"trend_direction"`
	LastSearchedAt    time.Time      `json:"last_searched_at"`
}

// SearchStats summarises a user's analytics records
type SearchStats struct {
	TotalSearches       int      `json:"total_searches"`
	UniqueQueries       int      `json:"unique_queries"`
	AvgResultsPerSearch *float64 `json:"avg_results_per_search"`
	MostSearchedQuery   *string  `json:"most_searched_query"`
	SearchesToday       int      `json:"searches_today"`
	SearchesThisWeek    int      `json:"searches_this_week"`
}
