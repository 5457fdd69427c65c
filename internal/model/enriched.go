package model

// EnrichedShow is a Show merged with the matching movie-catalog entry.
// When reconciliation misses, only the embedded Show is populated and the
// catalog fields stay at their zero values (and are omitted from JSON).
type EnrichedShow struct {
	Show

	Title            string   `json:"title,omitempty"`
	OriginalTitle    string   `json:"originalTitle,omitempty"`
	TheMovieDbID     int64    `json:"theMovieDbId,omitempty"`
	ImdbID           string   `json:"imdbId,omitempty"`
	Tagline          string   `json:"tagline,omitempty"`
	Budget           int64    `json:"budget,omitempty"`
	Revenue          int64    `json:"revenue,omitempty"`
	Year             int      `json:"year,omitempty"`
	ReleaseDate      string   `json:"releaseDate,omitempty"`
	OriginalLanguage string   `json:"originalLanguage,omitempty"`
	Popularity       float64  `json:"popularity,omitempty"`
	VoteAverage      float64  `json:"voteAverage,omitempty"`
	VoteCount        int64    `json:"voteCount,omitempty"`
	Writers          []Person `json:"writers,omitempty"`
}

// Enriched reports whether the record carries catalog data.
func (e EnrichedShow) Enriched() bool { return e.TheMovieDbID != 0 }
