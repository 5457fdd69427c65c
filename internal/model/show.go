package model

// Show is one film as advertised by a venue's site, normalized into the
// common schema.  ID is always utils.Slug of the scraped title so the same
// film from two adapters collapses onto one record.
//
// Fields:
//
//	ID               – slug of the title.
//	Name             – display title with special-edition markers removed.
//	SpecialEdition   – markers such as "CLUB X" or "4K", when present.
//	Sessions         – screenings, in page order.
//	Synopsis         – short description.
//	Duration         – runtime in minutes, zero when unknown.
//	DurationReadable – Duration rendered as "1h 30m".
//	Poster, Trailer  – absolute URLs.
//	Genres           – genre names as the site lists them.
//	Director, Cast   – credited people.
//	Source           – provenance URL of the scraped page or feed item.
type Show struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	SpecialEdition   string    `json:"specialEdition,omitempty"`
	Sessions         []Session `json:"sessions"`
	Synopsis         string    `json:"synopsis,omitempty"`
	Duration         int       `json:"duration,omitempty"`
	DurationReadable string    `json:"durationReadable,omitempty"`
	Poster           string    `json:"poster,omitempty"`
	Trailer          string    `json:"trailer,omitempty"`
	Genres           []string  `json:"genres,omitempty"`
	Director         *Person   `json:"director,omitempty"`
	Cast             []Person  `json:"cast,omitempty"`
	Source           string    `json:"source,omitempty"`
}

// Session is a single screening.  Time is "HH:MM" and Date, when known,
// is an ISO "YYYY-MM-DD" day.
type Session struct {
	Room string `json:"room,omitempty"`
	Time string `json:"time"`
	Date string `json:"date,omitempty"`
	Type string `json:"type,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Person is a credited director, writer or cast member.
type Person struct {
	Name      string `json:"name"`
	Picture   string `json:"picture,omitempty"`
	Character string `json:"character,omitempty"`
}
