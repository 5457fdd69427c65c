package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/model"
	"github.com/iliyamo/cartelera/internal/queue"
)

// Refresh statuses.
const (
	RefreshOK      = "OK"
	RefreshPartial = "PARTIAL"
	RefreshFailed  = "FAILED"
)

// VenueOutcome is the per-venue result of a refresh.
type VenueOutcome struct {
	VenueID  string `json:"venueId"`
	Shows    int    `json:"shows"`
	Enriched int    `json:"enriched"`
	Error    string `json:"error,omitempty"`
}

// RefreshReport is the cache status left by RefreshAll together with the
// per-venue outcomes.  Status is OK when every venue refreshed, FAILED when
// none did and PARTIAL otherwise.
type RefreshReport struct {
	CacheStatus
	Status   string         `json:"status"`
	Outcomes []VenueOutcome `json:"outcomes"`
}

// Failed returns the outcomes that carry an error.
func (r RefreshReport) Failed() []VenueOutcome {
	var out []VenueOutcome
	for _, o := range r.Outcomes {
		if o.Error != "" {
			out = append(out, o)
		}
	}
	return out
}

// RefreshAll clears the cache, refreshes the registry from the provider
// directory and rebuilds the enriched listing of every venue.  One venue
// failing never stops the others; the report records each outcome in
// registry order, and the returned report carries the resulting cache
// status.
func (s *ListingService) RefreshAll(ctx context.Context) (RefreshReport, error) {
	started := s.now()
	if err := s.Cache.Clear(ctx); err != nil {
		return RefreshReport{}, err
	}
	s.refreshRegistry(ctx)

	venues := s.Registry.All()
	outcomes := make([]VenueOutcome, len(venues))
	p := pool.New().WithMaxGoroutines(s.opts.Parallelism)
	for i, v := range venues {
		p.Go(func() {
			outcomes[i] = s.refreshVenue(ctx, v)
		})
	}
	p.Wait()

	status, err := s.CacheStatus(ctx)
	if err != nil {
		return RefreshReport{}, err
	}
	report := RefreshReport{CacheStatus: status, Status: RefreshOK, Outcomes: outcomes}
	switch failed := len(report.Failed()); {
	case failed == len(outcomes) && failed > 0:
		report.Status = RefreshFailed
	case failed > 0:
		report.Status = RefreshPartial
	}
	s.log.Info("refresh finished",
		zap.String("status", report.Status), zap.Int("venues", len(outcomes)),
		zap.Int("failed", len(report.Failed())), zap.Duration("took", s.now().Sub(started)))

	s.publish(ctx, report)
	return report, nil
}

func (s *ListingService) refreshVenue(ctx context.Context, v model.Venue) (out VenueOutcome) {
	out.VenueID = v.ID
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("venue refresh panicked", zap.String("venue", v.ID), zap.Any("panic", p))
			out.Error = "internal error"
		}
	}()
	listing, err := s.GetEnrichedShows(ctx, v.ID)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Shows = len(listing.Shows)
	for _, sh := range listing.Shows {
		if sh.Enriched() {
			out.Enriched++
		}
	}
	return out
}

// refreshRegistry merges the provider directory into the registry.  A
// failing directory keeps the current registry.
func (s *ListingService) refreshRegistry(ctx context.Context) {
	if s.Directory == nil || s.opts.DirectoryURL == "" {
		return
	}
	found, err := s.Directory.FetchVenues(ctx, s.opts.DirectoryURL)
	if err != nil {
		s.log.Warn("directory refresh failed, keeping registry", zap.String("kind", errorKind(err)), zap.Error(err))
		return
	}
	res := s.Registry.Merge(found)
	s.log.Info("registry refreshed",
		zap.Int("added", res.Added), zap.Int("updated", res.Updated), zap.Int("skipped", res.Skipped))
	if s.Venues != nil {
		if err := s.Venues.UpsertVenues(ctx, s.Registry.All()); err != nil {
			s.log.Error("persist venues failed", zap.Error(err))
		}
	}
}

func (s *ListingService) publish(ctx context.Context, r RefreshReport) {
	if s.Publisher == nil {
		return
	}
	ev := queue.ListingsRefreshedEvent{
		EventID:     uuid.NewString(),
		Status:      r.Status,
		Venues:      make([]string, 0, len(r.Outcomes)),
		RefreshedAt: s.now().UTC().Format(time.RFC3339),
	}
	for _, o := range r.Outcomes {
		ev.Venues = append(ev.Venues, o.VenueID)
		ev.Shows += o.Shows
		ev.Enriched += o.Enriched
		if o.Error != "" {
			ev.FailedVenues = append(ev.FailedVenues, o.VenueID)
		}
	}
	if err := s.Publisher.PublishListingsRefreshed(ctx, ev); err != nil {
		s.log.Warn("publish refresh event failed", zap.Error(err))
	}
}
