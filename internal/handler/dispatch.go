package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/queue"
	"github.com/iliyamo/cartelera/internal/service"
)

// Message patterns served by Dispatcher.
const (
	PatternVenues        = "cinemas"
	PatternVenue         = "cinema"
	PatternShows         = "cinema/basic"
	PatternEnrichedShows = "cinema/pro"
	PatternCached        = "cached"
	PatternUpdateAll     = "updateAll"
)

// Dispatcher maps message patterns to listing operations.
type Dispatcher struct {
	svc    Listings
	log    *zap.Logger
	routes map[string]func(context.Context, queue.Request) (any, error)
}

// NewDispatcher returns a Dispatcher over svc.
func NewDispatcher(svc Listings, log *zap.Logger) *Dispatcher {
	d := &Dispatcher{svc: svc, log: log.With(zap.String("component", "dispatcher"))}
	d.routes = map[string]func(context.Context, queue.Request) (any, error){
		PatternVenues: func(ctx context.Context, r queue.Request) (any, error) {
			return svc.ListVenues(ctx, r.Location)
		},
		PatternVenue: func(ctx context.Context, r queue.Request) (any, error) {
			return svc.GetVenue(ctx, r.ID)
		},
		PatternShows: func(ctx context.Context, r queue.Request) (any, error) {
			return svc.GetShows(ctx, r.ID)
		},
		PatternEnrichedShows: func(ctx context.Context, r queue.Request) (any, error) {
			return svc.GetEnrichedShows(ctx, r.ID)
		},
		PatternCached: func(ctx context.Context, _ queue.Request) (any, error) {
			return svc.CacheStatus(ctx)
		},
		PatternUpdateAll: func(ctx context.Context, _ queue.Request) (any, error) {
			return svc.RefreshAll(ctx)
		},
	}
	return d
}

// Dispatch runs pattern with the JSON request body and returns the record
// or a service.ErrorPayload.  It never panics.  Its signature matches
// queue.DispatchFunc.
func (d *Dispatcher) Dispatch(ctx context.Context, pattern string, body []byte) (out any) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error("pattern panicked", zap.String("pattern", pattern), zap.Any("panic", p))
			out = service.ErrorPayload{StatusCode: http.StatusInternalServerError, Message: "internal server error"}
		}
	}()

	route, ok := d.routes[pattern]
	if !ok {
		return service.ErrorPayload{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("There is no matching message handler defined for pattern '%s'", pattern),
		}
	}
	var req queue.Request
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return service.ErrorPayload{StatusCode: http.StatusBadRequest, Message: "invalid request body: " + err.Error()}
		}
	}
	res, err := route(ctx, req)
	if err != nil {
		p := service.ErrorPayloadFrom(err)
		if p.StatusCode >= http.StatusInternalServerError {
			d.log.Error("pattern failed", zap.String("pattern", pattern), zap.Error(err))
		}
		return p
	}
	return res
}
