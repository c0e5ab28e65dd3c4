// Package client provides the core Veracross HTTP client with parameter
// normalization, transparent pagination, and rate limit throttling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/schooldata/veracross-client/pkg/ratelimit"
)

// Prometheus metrics for API client operations.
var (
	vcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veracross_requests_total",
		Help: "Total API requests by resource and status",
	}, []string{"resource", "status"})

	vcRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "veracross_request_duration_seconds",
		Help:    "API request duration in seconds by resource",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"resource"})

	vcRecordsPulledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veracross_records_pulled_total",
		Help: "Total records accumulated across pages by resource",
	}, []string{"resource"})

	vcDroppedFiltersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veracross_dropped_filters_total",
		Help: "Total filter values dropped during parameter normalization",
	})
)

// BaseURLTemplate derives the API base URL from a school short name.
const BaseURLTemplate = "https://api.veracross.com/%s/v2/"

// PageSize is the fixed number of records the API returns per page.
const PageSize = 100

// ParamPage is the query parameter selecting a result page.
const ParamPage = "page"

// Client is the Veracross API client. It is a plain long-lived value owned
// by the caller's composition root; create one per credential and share it.
// A single Pull runs its pages strictly in order, so concurrent Pulls on
// one client interleave their rate limit observations.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	username    string
	password    string
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// SchoolShortName derives the base URL via BaseURLTemplate.
	SchoolShortName string

	// BaseURL overrides the derived URL when set.
	BaseURL string

	// Basic auth credentials. Both are required.
	Username string
	Password string

	// Strict surfaces non-success HTTP statuses as *StatusError instead
	// of silently returning an empty result set.
	Strict bool

	// Timeout for each HTTP request (default 30s).
	Timeout time.Duration

	// RateLimitStore holds rate limit state. Defaults to an in-process
	// store; use ratelimit.NewRedisStore to share the quota between
	// processes pulling with the same credential.
	RateLimitStore ratelimit.Store
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(schoolShortName, username, password string) Config {
	return Config{
		SchoolShortName: schoolShortName,
		Username:        username,
		Password:        password,
		Timeout:         30 * time.Second,
	}
}

// New creates a new Veracross client. The returned client is authenticated
// and ready; there is no separate connect step.
func New(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" && cfg.SchoolShortName != "" {
		baseURL = fmt.Sprintf(BaseURLTemplate, cfg.SchoolShortName)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base URL or school short name is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	if cfg.Username == "" || cfg.Password == "" {
		return nil, ErrCredentialsMissing
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "veracross-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     baseURL,
		username:    cfg.Username,
		password:    cfg.Password,
		rateLimiter: ratelimit.NewTracker(cfg.RateLimitStore, logger),
		config:      cfg,
		logger:      logger,
	}, nil
}

// BaseURL returns the resolved API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// String describes the connection, e.g. for startup logs.
func (c *Client) String() string {
	return fmt.Sprintf("veracross API connected to %s as %s", c.baseURL, c.username)
}

// Pull fetches all pages of a resource collection and returns the
// concatenated records in page order.
//
// The resource is a collection name ("facstaff", "households") or a
// collection name plus record id ("facstaff/99"). Parameters are optional
// caller-supplied filters, normalized per NormalizeParams.
//
// Non-success HTTP statuses yield an empty result and a nil error unless
// the client was configured with Strict. Network errors propagate to the
// caller; there is no retry. A failure mid-pagination discards the pages
// already accumulated.
func (c *Client) Pull(ctx context.Context, resource string, params map[string]any) ([]json.RawMessage, error) {
	if c.username == "" || c.password == "" {
		return nil, ErrNotConnected
	}

	normalized, dropped := NormalizeParams(params)
	for _, key := range dropped {
		vcDroppedFiltersTotal.Inc()
		c.logger.Warn().
			Str("resource", resource).
			Str("filter", key).
			Msg("Dropping unparseable filter value")
	}

	// A throttle state left behind by an earlier response (possibly from
	// another process sharing the store) gates the first request too.
	if err := c.rateLimiter.Throttle(ctx); err != nil {
		return nil, err
	}

	resp, err := c.fetchPage(ctx, resource, normalized, 1)
	if err != nil {
		return nil, err
	}

	records := []json.RawMessage{}

	if resp.StatusCode != http.StatusOK {
		return records, c.handleNonSuccess(ctx, resp, resource, 1)
	}

	totalPages := 1
	if totalStr := resp.Header.Get("X-Total-Count"); totalStr != "" {
		total, err := strconv.Atoi(totalStr)
		if err != nil {
			c.logger.Warn().
				Str("resource", resource).
				Str("value", totalStr).
				Msg("Invalid X-Total-Count header - assuming single page")
		} else {
			totalPages = total/PageSize + 1
		}
	}

	page := 1
	for {
		pageRecords, err := decodeRecords(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode page %d of %s: %w", page, resource, err)
		}
		records = append(records, pageRecords...)

		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		if page >= totalPages {
			break
		}

		if err := c.rateLimiter.Throttle(ctx); err != nil {
			return nil, err
		}

		page++
		resp, err = c.fetchPage(ctx, resource, normalized, page)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return []json.RawMessage{}, c.handleNonSuccess(ctx, resp, resource, page)
		}
	}

	vcRecordsPulledTotal.WithLabelValues(resource).Add(float64(len(records)))
	c.logger.Info().
		Str("resource", resource).
		Int("pages", totalPages).
		Int("records", len(records)).
		Msg("Pull complete")

	return records, nil
}

// fetchPage issues a single GET request for one page of a resource. The
// page parameter is only added for pages beyond the first.
func (c *Client) fetchPage(ctx context.Context, resource string, params map[string]string, page int) (*http.Response, error) {
	requestURL := c.baseURL + resource + ".json"

	query := url.Values{}
	for key, value := range params {
		query.Set(key, value)
	}
	if page > 1 {
		query.Set(ParamPage, strconv.Itoa(page))
	}
	if encoded := query.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("resource", resource).
		Int("page", page).
		Msg("Executing API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	vcRequestDuration.WithLabelValues(resource).Observe(time.Since(start).Seconds())

	if err != nil {
		vcRequestsTotal.WithLabelValues(resource, "network_error").Inc()
		c.logger.Error().Err(err).Str("resource", resource).Int("page", page).Msg("HTTP request failed")
		return nil, err
	}

	vcRequestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

// handleNonSuccess applies the fail-soft policy to a non-200 response: the
// body is not parsed, rate limit headers are still honored, and the status
// only becomes an error in strict mode.
func (c *Client) handleNonSuccess(ctx context.Context, resp *http.Response, resource string, page int) error {
	resp.Body.Close()

	if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	c.logger.Warn().
		Str("resource", resource).
		Int("page", page).
		Int("status", resp.StatusCode).
		Msg("Non-success response - returning empty result")

	if c.config.Strict {
		return &StatusError{StatusCode: resp.StatusCode, Resource: resource, Page: page}
	}
	return nil
}

// decodeRecords reads one page body. Collection pages are JSON arrays;
// single-record resources ("facstaff/99") return one object, which counts
// as a one-element result.
func decodeRecords(body io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '{' {
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// RateLimiter returns the rate limit tracker (for testing).
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
