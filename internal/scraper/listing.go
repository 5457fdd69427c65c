package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/model"
	"github.com/iliyamo/cartelera/internal/utils"
)

var (
	// "Sala 3 - 18:00" or "Sala 3 - 20:30 (VOSE)".
	listingSessionRe = regexp.MustCompile(`Sala (\d+) - (\d{1,2}:\d{2})(?: \(([^)]+)\))?`)
	localDateRe      = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
)

// detailConcurrency bounds parallel detail-page requests per venue.
const detailConcurrency = 8

// Listing reads sites built as an index page linking to one detail page per
// film, with the day's sessions printed on the detail page.
type Listing struct {
	fetch *Fetcher
	log   *zap.Logger
}

// NewListing returns the listing-page adapter.
func NewListing(f *Fetcher, log *zap.Logger) *Listing {
	return &Listing{fetch: f, log: log.With(zap.String("adapter", model.FamilyListing))}
}

type showResult struct {
	show model.Show
	err  error
}

// FetchShows implements Adapter.  Detail pages are the only source of a
// film's title, so a detail page that fails to load or parse drops the film.
func (a *Listing) FetchShows(ctx context.Context, venue model.Venue) ([]model.Show, error) {
	doc, base, err := a.fetch.Document(ctx, venue.Source)
	if err != nil {
		return nil, err
	}
	links := uniq(collect(doc.Find(".views-field-nothing a[href]"), func(s *goquery.Selection) (string, bool) {
		link := resolve(base, s.AttrOr("href", ""))
		return link, link != ""
	}))
	if len(links) == 0 {
		return nil, &ParseError{URL: venue.Source, Reason: "no film links on index page"}
	}

	results := iter.Mapper[string, showResult]{MaxGoroutines: detailConcurrency}.Map(links, func(link *string) showResult {
		page, pageURL, err := a.fetch.Document(ctx, *link)
		if err != nil {
			return showResult{err: err}
		}
		show, err := a.parseDetail(page, pageURL)
		return showResult{show: show, err: err}
	})

	shows := make([]model.Show, 0, len(results))
	for i, r := range results {
		if r.err != nil {
			a.log.Warn("dropping film", zap.String("venue", venue.ID), zap.String("url", links[i]), zap.Error(r.err))
			continue
		}
		shows = append(shows, r.show)
	}
	return shows, nil
}

func (a *Listing) parseDetail(doc *goquery.Document, pageURL *url.URL) (model.Show, error) {
	name := text(doc.Find("h1").First())
	if name == "" {
		return model.Show{}, &ParseError{URL: pageURL.String(), Reason: "missing title"}
	}
	show := model.Show{
		ID:       utils.Slug(name),
		Name:     name,
		Poster:   resolve(pageURL, doc.Find(".imagecache-cartelDetalle").First().AttrOr("src", "")),
		Trailer:  strings.TrimSpace(doc.Find("#urlvideo").First().Text()),
		Synopsis: text(doc.Find(".sinopsis p").First()),
		Source:   pageURL.String(),
	}

	details := doc.Find(".datos span")
	if n := details.Length(); n > 0 {
		show.Genres = utils.SplitList(text(details.Eq(0)), ", ")
		if n >= 4 {
			if minutes, ok := utils.ParseMinutes(text(details.Eq(n - 3))); ok {
				show.Duration = minutes
				show.DurationReadable = utils.FormatDuration(minutes)
			}
			show.Director = person(text(details.Eq(n - 2)))
			show.Cast = people(utils.SplitList(text(details.Eq(n-1)), ", "))
		}
	}

	show.Sessions = a.parseSessions(doc.Find(".horarios ul"), pageURL)
	return show, nil
}

// parseSessions reads one day per list: the first item holds the date and
// the second the session links.
func (a *Listing) parseSessions(days *goquery.Selection, pageURL *url.URL) []model.Session {
	var sessions []model.Session
	days.Each(func(_ int, day *goquery.Selection) {
		items := day.Find("li")
		date := ""
		if raw := localDateRe.FindString(text(items.Eq(0))); raw != "" {
			date, _ = utils.ParseLocalDate(raw)
		}
		sessions = append(sessions, collect(items.Eq(1).Find("a"), func(s *goquery.Selection) (model.Session, bool) {
			line := text(s)
			m := listingSessionRe.FindStringSubmatch(line)
			if m == nil {
				a.log.Debug("skipping session line", zap.String("line", line), zap.String("url", pageURL.String()))
				return model.Session{}, false
			}
			return model.Session{
				Room: m[1],
				Time: clock(m[2]),
				Date: date,
				Type: m[3],
				URL:  resolve(pageURL, s.AttrOr("href", "")),
			}, true
		})...)
	})
	return sessions
}
