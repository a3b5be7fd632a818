package metadata

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

	"aaxconv/internal/services"
)

// Fetcher retrieves metadata for one book.
type Fetcher interface {
	Fetch(ctx context.Context, asin string) (Record, error)
}

// Client queries the metadata service over HTTP.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if agent = strings.TrimSpace(agent); agent != "" {
			c.userAgent = agent
		}
	}
}

// New creates a metadata client rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("metadata base url required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Fetch retrieves the metadata record for asin.
func (c *Client) Fetch(ctx context.Context, asin string) (Record, error) {
	asin = strings.TrimSpace(asin)
	if asin == "" {
		return Record{}, services.Wrap(services.ErrMetadata, "metadata", "fetch", "empty asin", nil)
	}
	endpoint := c.baseURL + "/books/" + url.PathEscape(asin)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Record{}, services.Wrap(services.ErrMetadata, "metadata", "build request", asin, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Record{}, services.Cancelled("metadata fetch")
		}
		return Record{}, services.Wrap(services.ErrMetadata, "metadata", "request", asin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		detail := fmt.Sprintf("%s: status %d", asin, resp.StatusCode)
		if text := strings.TrimSpace(string(snippet)); text != "" {
			detail += ": " + text
		}
		return Record{}, services.Wrap(services.ErrMetadata, "metadata", "request", detail, nil)
	}

	var record Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return Record{}, services.Wrap(services.ErrMetadata, "metadata", "decode response", asin, err)
	}
	if strings.TrimSpace(record.Title) == "" {
		return Record{}, services.Wrap(services.ErrMetadata, "metadata", "decode response", asin+": missing title", nil)
	}
	return record, nil
}
