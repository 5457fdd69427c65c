package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/iliyamo/cartelera/internal/scraper"
)

// NotFoundError reports an unknown venue id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Resource with ID '%s' was not found", e.ID)
}

// InvalidRequestError reports a malformed request, e.g. a missing id.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string { return e.Reason }

// ErrEmptyListing is returned when an adapter reads a venue page but finds
// no shows at all, which in practice means the page layout changed.
var ErrEmptyListing = errors.New("source returned no shows")

// ErrorPayload is the uniform error body shared by every transport.
type ErrorPayload struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (p ErrorPayload) Error() string { return p.Message }

// ErrorPayloadFrom maps err to its transport payload.  Unknown ids become
// 404 and malformed requests 400; everything else, including upstream
// fetch and parse failures, is a 500 that keeps the original message.
func ErrorPayloadFrom(err error) ErrorPayload {
	var (
		nf      *NotFoundError
		invalid *InvalidRequestError
		payload ErrorPayload
	)
	switch {
	case errors.As(err, &payload):
		return payload
	case errors.As(err, &nf):
		return ErrorPayload{StatusCode: http.StatusNotFound, Message: nf.Error()}
	case errors.As(err, &invalid):
		return ErrorPayload{StatusCode: http.StatusBadRequest, Message: invalid.Error()}
	default:
		return ErrorPayload{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
}

// errorKind labels err for logs.
func errorKind(err error) string {
	var (
		fe *scraper.FetchError
		pe *scraper.ParseError
	)
	switch {
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &fe):
		return "fetch"
	case errors.Is(err, ErrEmptyListing):
		return "empty"
	default:
		return "internal"
	}
}
