package scraper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher performs the GET requests shared by every adapter.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher builds a Fetcher.  A nil client gets one with timeout; a
// client without a timeout of its own is copied and given it.
func NewFetcher(client *http.Client, userAgent string, timeout time.Duration) *Fetcher {
	switch {
	case client == nil:
		client = &http.Client{Timeout: timeout}
	case client.Timeout == 0 && timeout > 0:
		c := *client
		c.Timeout = timeout
		client = &c
	}
	return &Fetcher{client: client, userAgent: userAgent}
}

// Document fetches rawURL and parses it as HTML.  The final request URL is
// returned so relative links can be resolved against it.
func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	body, final, err := f.get(ctx, rawURL, "text/html")
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, nil, &ParseError{URL: rawURL, Reason: err.Error()}
	}
	return doc, final, nil
}

// JSON fetches rawURL and decodes the body into dst.
func (f *Fetcher) JSON(ctx context.Context, rawURL string, dst any) error {
	body, _, err := f.get(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return &ParseError{URL: rawURL, Reason: "decode json: " + err.Error()}
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, rawURL, accept string) (io.ReadCloser, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", accept)
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, &FetchError{URL: rawURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.Request.URL, nil
}
