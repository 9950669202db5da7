// Package remote is the HTTP client for TheCatAPI image search.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/catdex/catdex/internal/breed"
	"github.com/catdex/catdex/internal/errors"
)

const (
	DefaultTimeout = 30 * time.Second

	// maxBody caps how much of a response is read.
	maxBody = 4 << 20
)

// Order is the sort direction of an image search.
type Order string

const (
	OrderAsc  Order = "ASC"
	OrderDesc Order = "DESC"
)

// Query holds image search parameters.
type Query struct {
	Limit     int
	Page      int
	HasBreeds bool
	Order     Order
}

// DefaultQuery returns the parameters used by a catalogue refresh.
func DefaultQuery(limit int) Query {
	return Query{Limit: limit, Page: 0, HasBreeds: true, Order: OrderAsc}
}

// Values encodes q as URL query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("page", strconv.Itoa(q.Page))
	if q.HasBreeds {
		v.Set("has_breeds", "1")
	} else {
		v.Set("has_breeds", "0")
	}
	order := q.Order
	if order == "" {
		order = OrderAsc
	}
	v.Set("order", string(order))
	return v
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("http error: status=%d body=%s", e.StatusCode, e.Body)
}

// Client calls TheCatAPI.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
}

// New creates a Client. baseURL must be absolute; a trailing slash is
// ignored. timeout <= 0 uses DefaultTimeout.
func New(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	u, err := url.ParseRequestURI(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url: unsupported scheme %q", u.Scheme)
	}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(u.String(), "/"),
		APIKey:  apiKey,
	}, nil
}

// SearchImages lists image records. Failures are UPSTREAM errors wrapping
// the transport, status or decode cause.
func (c *Client) SearchImages(ctx context.Context, q Query) ([]breed.RawImage, error) {
	var out []breed.RawImage
	if err := c.getJSON(ctx, "/v1/images/search?"+q.Values().Encode(), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []breed.RawImage{}
	}
	return out, nil
}

// GetImage fetches one image record by id.
func (c *Client) GetImage(ctx context.Context, id string) (*breed.RawImage, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewInvalidRequest("image id is required")
	}
	var out breed.RawImage
	if err := c.getJSON(ctx, "/v1/images/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return errors.NewUpstream(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.NewUpstream(fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return errors.NewUpstream(fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewUpstream(&HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		})
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewUpstream(fmt.Errorf("decode json: %w", err))
	}
	return nil
}
