package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/cartelera/internal/model"
)

// scrapedColumns are written by every upsert.  Sessions live on the venue
// row since the same show plays in many venues.
var scrapedColumns = []string{
	"id", "name", "special_edition", "synopsis", "duration", "duration_readable",
	"poster", "trailer", "genres", "director", "cast_members", "source", "updated_at",
}

// catalogColumns are only written for shows matched against the catalog.
var catalogColumns = []string{
	"title", "original_title", "tmdb_id", "imdb_id", "tagline", "budget", "revenue",
	"release_year", "release_date", "original_language", "popularity", "vote_average",
	"vote_count", "writers",
}

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewShowRepo constructs a ShowRepo for the given dialect.
func NewShowRepo(db *sql.DB, dialect Dialect) *ShowRepo {
	return &ShowRepo{db: db, dialect: dialect, now: time.Now}
}

// UpsertShows writes the scraped columns of every show.  Catalog columns of
// existing rows are preserved.
func (r *ShowRepo) UpsertShows(ctx context.Context, shows []model.Show) error {
	if len(shows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertQuery(r.dialect, "shows", scrapedColumns, scrapedColumns[1:]))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, s := range shows {
		args, err := r.scrapedArgs(s)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertEnrichedShows writes matched shows in full.  Shows without a
// catalog match fall back to the scraped-only upsert.
func (r *ShowRepo) UpsertEnrichedShows(ctx context.Context, shows []model.EnrichedShow) error {
	if len(shows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	all := append(append([]string{}, scrapedColumns...), catalogColumns...)
	full, err := tx.PrepareContext(ctx, upsertQuery(r.dialect, "shows", all, all[1:]))
	if err != nil {
		return err
	}
	defer full.Close()
	basic, err := tx.PrepareContext(ctx, upsertQuery(r.dialect, "shows", scrapedColumns, scrapedColumns[1:]))
	if err != nil {
		return err
	}
	defer basic.Close()

	for _, s := range shows {
		args, err := r.scrapedArgs(s.Show)
		if err != nil {
			return err
		}
		if !s.Enriched() {
			if _, err := basic.ExecContext(ctx, args...); err != nil {
				return err
			}
			continue
		}
		writers, err := json.Marshal(s.Writers)
		if err != nil {
			return err
		}
		args = append(args,
			s.Title, s.OriginalTitle, s.TheMovieDbID, s.ImdbID, s.Tagline, s.Budget, s.Revenue,
			s.Year, s.ReleaseDate, s.OriginalLanguage, s.Popularity, s.VoteAverage,
			s.VoteCount, string(writers),
		)
		if _, err := full.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ShowRepo) scrapedArgs(s model.Show) ([]any, error) {
	genres, err := json.Marshal(s.Genres)
	if err != nil {
		return nil, err
	}
	director, err := json.Marshal(s.Director)
	if err != nil {
		return nil, err
	}
	cast, err := json.Marshal(s.Cast)
	if err != nil {
		return nil, err
	}
	return []any{
		s.ID, s.Name, s.SpecialEdition, s.Synopsis, s.Duration, s.DurationReadable,
		s.Poster, s.Trailer, string(genres), string(director), string(cast), s.Source,
		r.now().UTC().Format(time.RFC3339),
	}, nil
}

// GetByID retrieves a show by its slug id.  It returns ErrShowNotFound if
// there is no matching row.  Sessions are not part of the show row.
func (r *ShowRepo) GetByID(ctx context.Context, id string) (*model.EnrichedShow, error) {
	const q = `SELECT id, name, special_edition, synopsis, duration, duration_readable, poster, trailer,
		genres, director, cast_members, source,
		title, original_title, tmdb_id, imdb_id, tagline, budget, revenue, release_year, release_date,
		original_language, popularity, vote_average, vote_count, writers
		FROM shows WHERE id = ?`
	var (
		s                                         model.EnrichedShow
		synopsis, genres, director, cast, writers sql.NullString
		title, originalTitle, imdbID, tagline     sql.NullString
		releaseDate, language                     sql.NullString
		tmdbID, budget, revenue, year, voteCount  sql.NullInt64
		popularity, voteAverage                   sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Name, &s.SpecialEdition, &synopsis, &s.Duration, &s.DurationReadable, &s.Poster, &s.Trailer,
		&genres, &director, &cast, &s.Source,
		&title, &originalTitle, &tmdbID, &imdbID, &tagline, &budget, &revenue, &year, &releaseDate,
		&language, &popularity, &voteAverage, &voteCount, &writers,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	s.Synopsis = synopsis.String
	jsonCols := []struct {
		col sql.NullString
		dst any
	}{{genres, &s.Genres}, {director, &s.Director}, {cast, &s.Cast}, {writers, &s.Writers}}
	for _, c := range jsonCols {
		if err := decodeJSON(c.col, c.dst); err != nil {
			return nil, err
		}
	}
	s.Title, s.OriginalTitle, s.ImdbID, s.Tagline = title.String, originalTitle.String, imdbID.String, tagline.String
	s.ReleaseDate, s.OriginalLanguage = releaseDate.String, language.String
	s.TheMovieDbID, s.Budget, s.Revenue, s.VoteCount = tmdbID.Int64, budget.Int64, revenue.Int64, voteCount.Int64
	s.Year = int(year.Int64)
	s.Popularity, s.VoteAverage = popularity.Float64, voteAverage.Float64
	return &s, nil
}
