package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the vendor REST endpoint.
const DefaultBaseURL = "https://api.polygon.io"

// Client provides access to the vendor REST API.
//
// Aggregates go through the vendor SDK, which handles pagination; every
// other endpoint is a plain JSON GET with retries. Both share one
// http.Client, so both obey the same rate limit.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	sdk        *polygon.Client
	logger     *slog.Logger

	limiter      *rate.Limiter
	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. An empty baseURL means
// DefaultBaseURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("component", "rest")
	c.httpClient = c.wrapHTTPClient(c.httpClient)
	c.sdk = polygon.NewWithClient(apiKey, c.httpClient)

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outbound requests per minute. The free vendor tier
// allows five.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// wrapHTTPClient returns a copy of hc whose transport applies the rate
// limit and sends SDK requests to baseURL instead of the vendor host.
func (c *Client) wrapHTTPClient(hc *http.Client) *http.Client {
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	var target *url.URL
	if c.baseURL != DefaultBaseURL {
		if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
			target = u
		}
	}

	wrapped := *hc
	wrapped.Transport = &transport{
		base:    base,
		limiter: c.limiter,
		target:  target,
	}
	return &wrapped
}

// transport rate-limits requests and optionally rewrites their host.
type transport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
	target  *url.URL
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	if t.target != nil && req.URL.Host != t.target.Host {
		req = req.Clone(req.Context())
		req.URL.Scheme = t.target.Scheme
		req.URL.Host = t.target.Host
		req.Host = t.target.Host
	}
	return t.base.RoundTrip(req)
}
