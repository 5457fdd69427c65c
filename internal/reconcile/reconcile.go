// Package reconcile matches scraped shows against the movie catalog and
// merges the catalog's metadata into them.
//
// Matching searches the catalog by the sanitized scraped title and narrows
// the hits in tiers: exact title, then scraped-contains-candidate, then
// candidate-contains-scraped.  When several candidates survive, their
// runtimes are compared with the scraped duration.  A match whose runtime
// is too far from the scraped one is rejected.  Failures never escape: the
// show comes back unchanged with a Failed outcome.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/model"
	"github.com/iliyamo/cartelera/internal/tmdb"
	"github.com/iliyamo/cartelera/internal/utils"
)

// RuntimeTolerance is the largest accepted difference, in minutes, between
// the scraped duration and the catalog runtime.
const RuntimeTolerance = 20

const (
	posterSize  = "w342"
	profileSize = "w185"
	youtubeURL  = "https://www.youtube.com/watch?v="
)

// Outcome classifies a reconciliation.
type Outcome int

const (
	Miss Outcome = iota
	Matched
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Failed:
		return "failed"
	default:
		return "miss"
	}
}

// Summary counts outcomes of a batch.
type Summary struct {
	Matched int `json:"matched"`
	Missed  int `json:"missed"`
	Failed  int `json:"failed"`
}

// Reconciler enriches shows from a tmdb.Catalog.
type Reconciler struct {
	catalog     tmdb.Catalog
	log         *zap.Logger
	currentYear bool
	now         func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCurrentYearSearch scopes the first catalog search to the current
// year.  An empty scoped search is retried without the year.
func WithCurrentYearSearch(enabled bool) Option {
	return func(r *Reconciler) { r.currentYear = enabled }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New returns a Reconciler.
func New(catalog tmdb.Catalog, log *zap.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		catalog: catalog,
		log:     log.With(zap.String("component", "reconciler")),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReconcileAll reconciles every show concurrently.  The result keeps the
// input order and has the same length as shows.
func (r *Reconciler) ReconcileAll(ctx context.Context, shows []model.Show) ([]model.EnrichedShow, Summary) {
	type result struct {
		show    model.EnrichedShow
		outcome Outcome
	}
	results := iter.Map(shows, func(s *model.Show) result {
		e, o := r.Reconcile(ctx, *s)
		return result{show: e, outcome: o}
	})

	var sum Summary
	out := make([]model.EnrichedShow, len(results))
	for i, res := range results {
		out[i] = res.show
		switch res.outcome {
		case Matched:
			sum.Matched++
		case Failed:
			sum.Failed++
		default:
			sum.Missed++
		}
	}
	return out, sum
}

// Reconcile enriches one show.  Unless the outcome is Matched the returned
// record wraps show unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, show model.Show) (out model.EnrichedShow, outcome Outcome) {
	log := r.log.With(zap.String("show", show.ID))
	defer func() {
		if p := recover(); p != nil {
			log.Error("reconcile panicked", zap.Any("panic", p))
			out, outcome = model.EnrichedShow{Show: show}, Failed
		}
	}()

	movie, err := r.resolve(ctx, show)
	if err != nil {
		log.Warn("catalog lookup failed", zap.Error(err))
		return model.EnrichedShow{Show: show}, Failed
	}
	if movie == nil {
		log.Debug("no catalog match", zap.String("title", show.Name))
		return model.EnrichedShow{Show: show}, Miss
	}
	if show.Duration > 0 && movie.Runtime > 0 && !withinTolerance(show.Duration, movie.Runtime) {
		log.Debug("runtime mismatch",
			zap.Int64("tmdb_id", movie.ID), zap.Int("scraped", show.Duration), zap.Int("catalog", movie.Runtime))
		return model.EnrichedShow{Show: show}, Miss
	}

	enriched, err := r.merge(ctx, show, movie)
	if err != nil {
		log.Warn("catalog enrichment failed", zap.Int64("tmdb_id", movie.ID), zap.Error(err))
		return model.EnrichedShow{Show: show}, Failed
	}
	return enriched, Matched
}

// resolve returns the matched catalog movie, or nil when nothing matches.
func (r *Reconciler) resolve(ctx context.Context, show model.Show) (*tmdb.Movie, error) {
	query := utils.Sanitize(show.Name)
	if query == "" {
		return nil, nil
	}
	results, err := r.search(ctx, query)
	if err != nil || len(results) == 0 {
		return nil, err
	}

	candidates := results
	if len(results) > 1 {
		candidates = tiered(query, results)
	}
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return r.catalog.Movie(ctx, candidates[0].ID)
	}
	return r.disambiguate(ctx, show.Duration, candidates)
}

func (r *Reconciler) search(ctx context.Context, query string) ([]tmdb.SearchResult, error) {
	if r.currentYear {
		resp, err := r.catalog.SearchMovie(ctx, query, tmdb.SearchOptions{Year: r.now().Year()})
		if err != nil {
			return nil, err
		}
		if len(resp.Results) > 0 {
			return resp.Results, nil
		}
	}
	resp, err := r.catalog.SearchMovie(ctx, query, tmdb.SearchOptions{})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// tiered returns the first non-empty tier of candidates matching query.
func tiered(query string, results []tmdb.SearchResult) []tmdb.SearchResult {
	tiers := []func(candidate string) bool{
		func(c string) bool { return c == query },
		func(c string) bool { return strings.Contains(query, c) },
		func(c string) bool { return strings.Contains(c, query) },
	}
	for _, match := range tiers {
		var hits []tmdb.SearchResult
		for _, res := range results {
			if title := utils.Sanitize(res.Title); title != "" && match(title) {
				hits = append(hits, res)
			}
		}
		if len(hits) > 0 {
			return hits
		}
	}
	return nil
}

// disambiguate fetches every candidate and keeps the last one, in candidate
// order, whose runtime is within tolerance of the scraped duration.  All
// fetches finish before the choice is made.
func (r *Reconciler) disambiguate(ctx context.Context, duration int, candidates []tmdb.SearchResult) (*tmdb.Movie, error) {
	if duration <= 0 {
		return nil, nil
	}
	type detail struct {
		movie *tmdb.Movie
		err   error
	}
	details := iter.Map(candidates, func(c *tmdb.SearchResult) detail {
		m, err := r.catalog.Movie(ctx, c.ID)
		return detail{movie: m, err: err}
	})

	var chosen *tmdb.Movie
	var errs []error
	for _, d := range details {
		if d.err != nil {
			errs = append(errs, d.err)
			continue
		}
		if d.movie.Runtime > 0 && withinTolerance(duration, d.movie.Runtime) {
			chosen = d.movie
		}
	}
	if chosen == nil && len(errs) == len(details) {
		return nil, errors.Join(errs...)
	}
	return chosen, nil
}

func withinTolerance(scraped, runtime int) bool {
	d := scraped - runtime
	if d < 0 {
		d = -d
	}
	return d <= RuntimeTolerance
}

func (r *Reconciler) merge(ctx context.Context, show model.Show, movie *tmdb.Movie) (model.EnrichedShow, error) {
	cfg, err := r.catalog.Configuration(ctx)
	if err != nil {
		return model.EnrichedShow{}, fmt.Errorf("configuration: %w", err)
	}
	credits, err := r.catalog.Credits(ctx, movie.ID)
	if err != nil {
		return model.EnrichedShow{}, fmt.Errorf("credits: %w", err)
	}
	videos, err := r.catalog.Videos(ctx, movie.ID)
	if err != nil {
		return model.EnrichedShow{}, fmt.Errorf("videos: %w", err)
	}
	base := cfg.Images.SecureBaseURL

	e := model.EnrichedShow{
		Show:             show,
		Title:            movie.Title,
		OriginalTitle:    movie.OriginalTitle,
		TheMovieDbID:     movie.ID,
		ImdbID:           movie.ImdbID,
		Tagline:          movie.Tagline,
		Budget:           movie.Budget,
		Revenue:          movie.Revenue,
		ReleaseDate:      movie.ReleaseDate,
		OriginalLanguage: movie.OriginalLanguage,
		Popularity:       movie.Popularity,
		VoteAverage:      movie.VoteAverage,
		VoteCount:        movie.VoteCount,
	}
	if len(movie.ReleaseDate) >= 4 {
		e.Year, _ = strconv.Atoi(movie.ReleaseDate[:4])
	}
	if movie.Runtime > 0 {
		e.Duration = movie.Runtime
		e.DurationReadable = utils.FormatDuration(movie.Runtime)
	}
	if poster := image(base, posterSize, movie.PosterPath); poster != "" {
		e.Poster = poster
	}
	if movie.Overview != "" {
		e.Synopsis = movie.Overview
	}
	if len(movie.Genres) > 0 {
		e.Genres = make([]string, 0, len(movie.Genres))
		for _, g := range movie.Genres {
			e.Genres = append(e.Genres, g.Name)
		}
	}

	for _, c := range credits.Crew {
		if c.Job == "Director" {
			e.Director = &model.Person{Name: c.Name, Picture: image(base, profileSize, c.ProfilePath)}
			break
		}
	}
	e.Writers = nil
	for _, c := range credits.Crew {
		if c.Job == "Screenplay" || c.Job == "Writer" {
			e.Writers = append(e.Writers, model.Person{Name: c.Name, Picture: image(base, profileSize, c.ProfilePath)})
		}
	}
	var cast []model.Person
	for _, c := range credits.Cast {
		if c.KnownForDepartment == "Acting" {
			cast = append(cast, model.Person{Name: c.Name, Character: c.Character, Picture: image(base, profileSize, c.ProfilePath)})
		}
	}
	if len(cast) > 0 {
		e.Cast = cast
	}

	if len(videos.Results) > 0 && videos.Results[0].Key != "" {
		e.Trailer = youtubeURL + videos.Results[0].Key
	}
	return e, nil
}

// image joins a catalog image path with the configured base and size.  A
// missing path yields "".
func image(base, size, path string) string {
	if path == "" || base == "" {
		return ""
	}
	return base + size + path
}
