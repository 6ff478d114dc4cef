package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimeout       = 20 * time.Second
	DefaultBodyByteLimit = 8 * 1024 * 1024
	DefaultAPIKeyHeader  = "Api-Authorization"

	defaultUserAgent = "eventsync/1.0"
)

// ClientOptions configures the provider API client.
type ClientOptions struct {
	BaseURL       string
	APIKey        string
	APIKeyHeader  string
	PartnerRef    string
	Timeout       time.Duration
	BodyByteLimit int64
	UserAgent     string
	HTTPClient    *http.Client
}

// Client requests single pages of listings.
type Client struct {
	endpoint     *url.URL
	apiKey       string
	apiKeyHeader string
	partnerRef   string
	bodyLimit    int64
	userAgent    string
	httpClient   *http.Client
}

func NewClient(opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	endpoint, err := url.Parse(base + "/events")
	if err != nil {
		return nil, fmt.Errorf("parse upstream base url: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("upstream base url must be http(s)")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	bodyLimit := opts.BodyByteLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyByteLimit
	}
	header := strings.TrimSpace(opts.APIKeyHeader)
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:     endpoint,
		apiKey:       strings.TrimSpace(opts.APIKey),
		apiKeyHeader: header,
		partnerRef:   strings.TrimSpace(opts.PartnerRef),
		bodyLimit:    bodyLimit,
		userAgent:    userAgent,
		httpClient:   client,
	}, nil
}

// FetchPage requests one page. Non-2xx statuses and payloads that fail the
// page schema are returned as errors.
func (c *Client) FetchPage(ctx context.Context, pageNumber, perPage int) ([]Listing, error) {
	u := *c.endpoint
	q := u.Query()
	q.Set("page", strconv.Itoa(pageNumber))
	q.Set("per_page", strconv.Itoa(perPage))
	if c.partnerRef != "" {
		q.Set("ref", c.partnerRef)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", pageNumber, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch page %d: status %d", pageNumber, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.bodyLimit))
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", pageNumber, err)
	}

	listings, err := DecodePage(body)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", pageNumber, err)
	}
	return listings, nil
}
