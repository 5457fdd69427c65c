// Package handler exposes the listing operations over HTTP and over
// message patterns.  Every error is answered with the same
// {statusCode, message} body, whichever transport carried the request.
package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/model"
	"github.com/iliyamo/cartelera/internal/service"
)

// Listings is the operation set served by the handlers.
type Listings interface {
	ListVenues(ctx context.Context, location string) ([]model.Venue, error)
	GetVenue(ctx context.Context, id string) (model.Venue, error)
	GetShows(ctx context.Context, id string) (model.Listing, error)
	GetEnrichedShows(ctx context.Context, id string) (model.EnrichedListing, error)
	CacheStatus(ctx context.Context) (service.CacheStatus, error)
	RefreshAll(ctx context.Context) (service.RefreshReport, error)
}

// ListingHandler serves the /v1 listing routes.
type ListingHandler struct {
	Svc Listings
	Log *zap.Logger
}

// NewListingHandler returns a ListingHandler.
func NewListingHandler(svc Listings, log *zap.Logger) *ListingHandler {
	return &ListingHandler{Svc: svc, Log: log.With(zap.String("component", "handler"))}
}

// ListVenues handles GET /v1/cinemas?location=a,b.
func (h *ListingHandler) ListVenues(c echo.Context) error {
	venues, err := h.Svc.ListVenues(c.Request().Context(), c.QueryParam("location"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, venues)
}

// GetVenue handles GET /v1/cinemas/:id.
func (h *ListingHandler) GetVenue(c echo.Context) error {
	v, err := h.Svc.GetVenue(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// GetShows handles GET /v1/cinemas/:id/shows.
func (h *ListingHandler) GetShows(c echo.Context) error {
	l, err := h.Svc.GetShows(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// GetEnrichedShows handles GET /v1/cinemas/:id/shows/enriched.
func (h *ListingHandler) GetEnrichedShows(c echo.Context) error {
	l, err := h.Svc.GetEnrichedShows(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

// CacheStatus handles GET /v1/cache.
func (h *ListingHandler) CacheStatus(c echo.Context) error {
	st, err := h.Svc.CacheStatus(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Refresh handles POST /v1/cache/refresh.  It runs synchronously and
// answers with the resulting cache status and per-venue outcomes.
func (h *ListingHandler) Refresh(c echo.Context) error {
	report, err := h.Svc.RefreshAll(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *ListingHandler) fail(c echo.Context, err error) error {
	p := service.ErrorPayloadFrom(err)
	if p.StatusCode >= http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(p.StatusCode, p)
}
