package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/model"
	"github.com/iliyamo/cartelera/internal/utils"
)

// DefaultFilmBaseURL prefixes a feed film's url slug to build its
// provenance link.
const DefaultFilmBaseURL = "https://www.cinesa.es/Peliculas/"

// JSONFeed reads chains that publish their schedule as one JSON document:
// days → films → cinemas → formats → rooms → sessions.
type JSONFeed struct {
	fetch       *Fetcher
	log         *zap.Logger
	filmBaseURL string
}

// NewJSONFeed returns the JSON-feed adapter.
func NewJSONFeed(f *Fetcher, log *zap.Logger) *JSONFeed {
	return &JSONFeed{
		fetch:       f,
		log:         log.With(zap.String("adapter", model.FamilyJSONFeed)),
		filmBaseURL: DefaultFilmBaseURL,
	}
}

type feedPayload struct {
	Cartelera []struct {
		Dia       string     `json:"dia"`
		Peliculas []feedFilm `json:"peliculas"`
	} `json:"cartelera"`
}

type feedFilm struct {
	Titulo     string      `json:"titulo"`
	URL        string      `json:"url"`
	Duracion   flexMinutes `json:"duracion"`
	Cartel     string      `json:"cartel"`
	Directores string      `json:"directores"`
	Actores    string      `json:"actores"`
	Genero     string      `json:"genero"`
	Sinopsis   string      `json:"sinopsis"`
	Cines      []struct {
		Tipos []struct {
			Tipo  string `json:"tipo"`
			Salas []struct {
				Sala     flexString `json:"sala"`
				Sesiones []struct {
					Hora string `json:"hora"`
					Tipo string `json:"tipo"`
					AO   string `json:"ao"`
				} `json:"sesiones"`
			} `json:"salas"`
		} `json:"tipos"`
	} `json:"cines"`
}

// FetchShows implements Adapter.  The feed's day applies to every session;
// only the first day block is read, as the feed lists today first.
func (a *JSONFeed) FetchShows(ctx context.Context, venue model.Venue) ([]model.Show, error) {
	var payload feedPayload
	if err := a.fetch.JSON(ctx, venue.Source, &payload); err != nil {
		return nil, err
	}
	return a.normalize(venue.Source, payload)
}

func (a *JSONFeed) normalize(source string, payload feedPayload) ([]model.Show, error) {
	if len(payload.Cartelera) == 0 {
		return nil, &ParseError{URL: source, Reason: "feed has no cartelera block"}
	}
	day := payload.Cartelera[0]
	date := feedDate(day.Dia)

	shows := make([]model.Show, 0, len(day.Peliculas))
	for _, film := range day.Peliculas {
		name := strings.TrimSpace(film.Titulo)
		if name == "" {
			a.log.Warn("skipping untitled film", zap.String("source", source))
			continue
		}
		show := model.Show{
			ID:       utils.Slug(name),
			Name:     name,
			Synopsis: strings.TrimSpace(film.Sinopsis),
			Poster:   strings.TrimSpace(film.Cartel),
			Genres:   utils.SplitList(film.Genero, " - "),
			Director: person(film.Directores),
			Cast:     people(utils.SplitList(film.Actores, ", ")),
		}
		if film.URL != "" {
			show.Source = a.filmBaseURL + strings.TrimPrefix(film.URL, "/")
		}
		if film.Duracion > 0 {
			show.Duration = int(film.Duracion)
			show.DurationReadable = utils.FormatDuration(show.Duration)
		}
		for _, cine := range film.Cines {
			for _, tipo := range cine.Tipos {
				for _, sala := range tipo.Salas {
					for _, ses := range sala.Sesiones {
						if ses.Hora == "" {
							continue
						}
						kind := ses.Tipo
						if kind == "" {
							kind = tipo.Tipo
						}
						show.Sessions = append(show.Sessions, model.Session{
							Room: string(sala.Sala),
							Time: clock(ses.Hora),
							Date: date,
							Type: kind,
							URL:  ses.AO,
						})
					}
				}
			}
		}
		shows = append(shows, show)
	}
	return shows, nil
}

// feedDate accepts ISO or DD/MM/YYYY days.
func feedDate(s string) string {
	s = strings.TrimSpace(s)
	if iso, err := utils.ParseLocalDate(s); err == nil {
		return iso
	}
	if len(s) >= 10 && s[4] == '-' && s[7] == '-' {
		return s[:10]
	}
	return ""
}

// flexMinutes decodes durations the feed sends either as numbers or as
// strings like "120" or "120 min".
type flexMinutes int

func (m *flexMinutes) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, _ := utils.ParseMinutes(s)
		*m = flexMinutes(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = flexMinutes(int(f))
	return nil
}

// flexString decodes room labels sent as numbers or strings.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	*s = flexString(string(b))
	return nil
}
