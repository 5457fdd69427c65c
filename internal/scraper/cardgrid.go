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
	clubMarkerRe        = regexp.MustCompile(`(?i)^\s*(club\s+[^:]+?)\s*:\s*`)
	anniversaryMarkerRe = regexp.MustCompile(`(?i)\s*\(\s*(\d+\s*(?:º|ª|st|nd|rd|th)?\s+(?:aniversario|anniversary))\s*\)`)
	fourKMarkerRe       = regexp.MustCompile(`(?i)\s+4K\s*$`)
	clockRe             = regexp.MustCompile(`\d{1,2}:\d{2}`)
)

// CardGrid reads sites that show a grid of film cards, each linking to a
// detail page carrying the synopsis and the sessions grouped by day.  Card
// titles may carry special-edition markers.
type CardGrid struct {
	fetch *Fetcher
	log   *zap.Logger
}

// NewCardGrid returns the card-grid adapter.
func NewCardGrid(f *Fetcher, log *zap.Logger) *CardGrid {
	return &CardGrid{fetch: f, log: log.With(zap.String("adapter", model.FamilyCardGrid))}
}

type card struct {
	title  string
	poster string
	link   string
}

// FetchShows implements Adapter.  The card already names the film, so a
// failing detail page keeps the show with card data and no sessions.
func (a *CardGrid) FetchShows(ctx context.Context, venue model.Venue) ([]model.Show, error) {
	doc, base, err := a.fetch.Document(ctx, venue.Source)
	if err != nil {
		return nil, err
	}
	cards := collect(doc.Find(".movie-card"), func(s *goquery.Selection) (card, bool) {
		c := card{
			title:  text(s.Find(".movie-card__title").First()),
			poster: resolve(base, s.Find("img").First().AttrOr("src", "")),
			link:   resolve(base, s.Find("a[href]").First().AttrOr("href", "")),
		}
		return c, c.title != ""
	})
	if len(cards) == 0 {
		return nil, &ParseError{URL: venue.Source, Reason: "no movie cards"}
	}

	return iter.Mapper[card, model.Show]{MaxGoroutines: detailConcurrency}.Map(cards, func(c *card) model.Show {
		name, special := SplitSpecialEdition(c.title)
		show := model.Show{
			ID:             utils.Slug(c.title),
			Name:           name,
			SpecialEdition: special,
			Poster:         c.poster,
			Source:         c.link,
		}
		if c.link == "" {
			return show
		}
		page, pageURL, err := a.fetch.Document(ctx, c.link)
		if err != nil {
			a.log.Warn("detail page unavailable", zap.String("venue", venue.ID), zap.String("url", c.link), zap.Error(err))
			return show
		}
		a.fillDetail(&show, page, pageURL)
		return show
	}), nil
}

func (a *CardGrid) fillDetail(show *model.Show, doc *goquery.Document, pageURL *url.URL) {
	show.Synopsis = text(doc.Find(".movie-detail__synopsis").First())
	if minutes, ok := utils.ParseMinutes(text(doc.Find(".movie-detail__duration").First())); ok {
		show.Duration = minutes
		show.DurationReadable = utils.FormatDuration(minutes)
	}
	show.Genres = utils.SplitList(text(doc.Find(".movie-detail__genres").First()), ", ")
	show.Director = person(text(doc.Find(".movie-detail__director").First()))
	show.Cast = people(utils.SplitList(text(doc.Find(".movie-detail__cast").First()), ", "))
	show.Trailer = resolve(pageURL, doc.Find("iframe.movie-detail__trailer").First().AttrOr("src", ""))

	doc.Find(".session-day").Each(func(_ int, day *goquery.Selection) {
		date, err := utils.ParseLocalDate(day.AttrOr("data-date", ""))
		if err != nil {
			a.log.Debug("session day without date", zap.String("url", pageURL.String()), zap.Error(err))
		}
		show.Sessions = append(show.Sessions, collect(day.Find("a.session"), func(s *goquery.Selection) (model.Session, bool) {
			t := clockRe.FindString(text(s))
			if t == "" {
				return model.Session{}, false
			}
			return model.Session{
				Room: strings.TrimSpace(s.AttrOr("data-room", "")),
				Time: clock(t),
				Date: date,
				Type: strings.TrimSpace(s.AttrOr("data-format", "")),
				URL:  resolve(pageURL, s.AttrOr("href", "")),
			}, true
		})...)
	})
}

// SplitSpecialEdition separates special-edition markers from a film title:
// a leading "CLUB <name>:", an "(<N>th anniversary)" or "(<N>º aniversario)"
// note, and a trailing "4K".  Markers are returned in title order joined by
// ", "; special is empty when the title has none.
func SplitSpecialEdition(title string) (name, special string) {
	name = strings.TrimSpace(title)
	var club, anniversary, fourK string

	if m := clubMarkerRe.FindStringSubmatch(name); m != nil {
		club = m[1]
		name = name[len(m[0]):]
	}
	if fourKMarkerRe.MatchString(name) {
		fourK = "4K"
		name = fourKMarkerRe.ReplaceAllString(name, "")
	}
	if m := anniversaryMarkerRe.FindStringSubmatch(name); m != nil {
		anniversary = strings.Join(strings.Fields(m[1]), " ")
		name = anniversaryMarkerRe.ReplaceAllString(name, "")
	}

	var markers []string
	for _, m := range []string{club, anniversary, fourK} {
		if m != "" {
			markers = append(markers, m)
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		// A title made only of markers keeps its original text.
		return strings.TrimSpace(title), ""
	}
	return name, strings.Join(markers, ", ")
}
