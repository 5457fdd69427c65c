// Package repository persists venues and shows to the catalog store.  Both
// tables are keyed by the registry id / show slug and written with
// idempotent upserts, so concurrent refreshes of the same record converge.
package repository

import "errors"

// ErrVenueNotFound is returned when a venue row does not exist.  Callers
// translate it into a NotFound payload.
var ErrVenueNotFound = errors.New("venue not found")

// ErrShowNotFound is returned when a show row does not exist.
var ErrShowNotFound = errors.New("show not found")
