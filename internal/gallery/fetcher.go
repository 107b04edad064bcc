package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the catalog has no such postcard.
var ErrNotFound = errors.New("gallery: postcard not found")

// Fetcher loads popup content from the catalog service.
type Fetcher interface {
	FetchPostcard(ctx context.Context, id int64) (PostcardSummary, error)
	FetchZoom(ctx context.Context, id int64) (ZoomAsset, error)
}

// StatusError is a non-2xx answer from the catalog service.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.Status, e.Body)
}

// HTTPFetcher talks to the catalog JSON API:
//
//	GET /api/postcard/{id}/       -> {title, number, front_image, back_image}
//	GET /api/postcard/{id}/zoom/  -> {can_view, front_image?}
//	GET /api/postcards/           -> {results: [...]}
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
	// Cookies are sent with every request, e.g. the member session.
	Cookies []*http.Cookie
}

// NewHTTPFetcher returns a fetcher for the server at baseURL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchPostcard loads the detail popup content.
func (f *HTTPFetcher) FetchPostcard(ctx context.Context, id int64) (PostcardSummary, error) {
	var p PostcardSummary
	if err := f.getJSON(ctx, fmt.Sprintf("/api/postcard/%d/", id), &p); err != nil {
		return PostcardSummary{}, err
	}
	if p.ID == 0 {
		p.ID = id
	}
	return p, nil
}

// FetchZoom loads the zoom asset. A refusal is a normal answer with
// CanView false, not an error.
func (f *HTTPFetcher) FetchZoom(ctx context.Context, id int64) (ZoomAsset, error) {
	var z ZoomAsset
	if err := f.getJSON(ctx, fmt.Sprintf("/api/postcard/%d/zoom/", id), &z); err != nil {
		return ZoomAsset{}, err
	}
	if !z.CanView {
		z.FrontImageURL = ""
	}
	return z, nil
}

type searchPayload struct {
	Total   int               `json:"total"`
	Results []PostcardSummary `json:"results"`
}

// Search runs a keyword search and returns the grid, in display order.
func (f *HTTPFetcher) Search(ctx context.Context, keywords string) ([]PostcardSummary, error) {
	path := "/api/postcards/"
	if keywords != "" {
		path += "?keywords_input=" + url.QueryEscape(keywords)
	}
	var payload searchPayload
	if err := f.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

func (f *HTTPFetcher) getJSON(ctx context.Context, path string, v any) error {
	target := f.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for _, c := range f.Cookies {
		req.AddCookie(c)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: target, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", target, err)
	}
	return nil
}
