package scraper

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/model"
	"github.com/iliyamo/cartelera/internal/utils"
)

// Directory reads a ticketing provider's venue directory, a page grouping
// venues by region.  It yields venues rather than shows and is used only
// to bootstrap the venue registry.  Listed venues are served through the
// card-grid adapter.
type Directory struct {
	fetch *Fetcher
	log   *zap.Logger
}

// NewDirectory returns the directory adapter.
func NewDirectory(f *Fetcher, log *zap.Logger) *Directory {
	return &Directory{fetch: f, log: log.With(zap.String("adapter", "directory"))}
}

// FetchVenues implements the registry bootstrap.  Entries without a usable
// link are skipped.
func (d *Directory) FetchVenues(ctx context.Context, directoryURL string) ([]model.Venue, error) {
	doc, base, err := d.fetch.Document(ctx, directoryURL)
	if err != nil {
		return nil, err
	}
	regions := doc.Find("section.region")
	if regions.Length() == 0 {
		return nil, &ParseError{URL: directoryURL, Reason: "no region sections"}
	}

	var venues []model.Venue
	regions.Each(func(_ int, region *goquery.Selection) {
		location := text(region.Find("h2").First())
		venues = append(venues, collect(region.Find("li.venue"), func(s *goquery.Selection) (model.Venue, bool) {
			a := s.Find("a[href]").First()
			link := resolve(base, a.AttrOr("href", ""))
			id := venueID(link)
			if id == "" {
				d.log.Debug("skipping directory entry", zap.String("entry", text(s)))
				return model.Venue{}, false
			}
			return model.Venue{
				ID:       id,
				Name:     text(a),
				Address:  text(s.Find(".venue-address").First()),
				Location: location,
				Source:   link,
				Family:   model.FamilyCardGrid,
			}, true
		})...)
	})
	return venues, nil
}

// venueID slugs the last path segment of a venue link.
func venueID(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return ""
	}
	last := path.Base(strings.TrimRight(u.Path, "/"))
	if last == "/" || last == "." {
		return ""
	}
	return utils.Slug(last)
}
