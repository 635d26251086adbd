package domain

import "time"

// SearchCount tracks how often a search term was used, together with a
// snapshot of the top result at the time the record was created.
type SearchCount struct {
	ID         string    `json:"id"`
	SearchTerm string    `json:"searchTerm"`
	MovieID    int64     `json:"movie_id"`
	Title      string    `json:"title"`
	PosterURL  string    `json:"poster_url"`
	Count      int64     `json:"count"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SearchCountFilter narrows a listing of search counts.
type SearchCountFilter struct {
	// SearchTerm, when set, matches the term exactly (case-sensitive).
	SearchTerm       *string
	OrderByCountDesc bool
	// Limit <= 0 means no limit.
	Limit int
}
