package domain

// Movie is one entry of a provider result list.
type Movie struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path,omitempty"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`
	Popularity       float64 `json:"popularity,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Adult            bool    `json:"adult"`
	GenreIDs         []int64 `json:"genre_ids,omitempty"`
}

// NamedRef is the {id, name} pair the provider uses for genres and companies.
type NamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieDetails is the single-movie payload returned by the details endpoint.
type MovieDetails struct {
	Movie
	Tagline             string     `json:"tagline"`
	Runtime             *int       `json:"runtime"`
	Budget              int64      `json:"budget"`
	Revenue             int64      `json:"revenue"`
	Status              string     `json:"status,omitempty"`
	Homepage            string     `json:"homepage,omitempty"`
	Genres              []NamedRef `json:"genres"`
	ProductionCompanies []NamedRef `json:"production_companies"`
	OriginCountry       []string   `json:"origin_country"`
}

// MovieList is the envelope around discover and search results.
type MovieList struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}
