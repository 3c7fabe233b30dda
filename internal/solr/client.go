package solr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
)

// Defaults for ClientConfig.
const (
	DefaultURL      = "http://localhost:8983/solr"
	DefaultTimeout  = 10 * time.Second
	DefaultPoolSize = 8
)

// ClientConfig configures the Solr HTTP client.
type ClientConfig struct {
	// URL is the Solr base URL, e.g. http://localhost:8983/solr.
	URL string

	// Timeout bounds each request attempt.
	Timeout time.Duration

	// Retry is the retry policy for network errors and 5xx responses.
	// A zero Multiplier selects DefaultRetryConfig, keeping MaxRetries if
	// set (negative disables retries).
	Retry scouterrors.RetryConfig

	// MaxFailures opens the circuit after this many consecutive failures.
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before a trial request.
	ResetTimeout time.Duration

	// PoolSize is the number of idle connections kept per host.
	PoolSize int

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client sends select requests to Solr. Safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	retry   scouterrors.RetryConfig
	breaker *scouterrors.CircuitBreaker
}

// NewClient creates a client. Zero config fields get defaults.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.Retry.Multiplier == 0 {
		retries := cfg.Retry.MaxRetries
		cfg.Retry = scouterrors.DefaultRetryConfig()
		if retries != 0 {
			cfg.Retry.MaxRetries = max(retries, 0)
		}
	}

	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, scouterrors.ConfigError(fmt.Sprintf("invalid solr url %q", cfg.URL), err).
			WithSuggestion("set engine.solr.url to e.g. http://localhost:8983/solr")
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        cfg.PoolSize,
			MaxIdleConnsPerHost: cfg.PoolSize,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	var breakerOpts []scouterrors.CircuitBreakerOption
	if cfg.MaxFailures > 0 {
		breakerOpts = append(breakerOpts, scouterrors.WithMaxFailures(cfg.MaxFailures))
	}
	if cfg.ResetTimeout > 0 {
		breakerOpts = append(breakerOpts, scouterrors.WithResetTimeout(cfg.ResetTimeout))
	}

	// No http.Client.Timeout: each attempt gets its own context deadline.
	return &Client{
		base:    base,
		http:    &http.Client{Transport: transport},
		timeout: cfg.Timeout,
		retry:   cfg.Retry,
		breaker: scouterrors.NewCircuitBreaker("solr "+base.Host, breakerOpts...),
	}, nil
}

// BaseURL returns the configured Solr base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Breaker returns the client's circuit breaker.
func (c *Client) Breaker() *scouterrors.CircuitBreaker {
	return c.breaker
}

// Select runs /<core>/select with params and returns the raw body and the
// decoded envelope.
func (c *Client) Select(ctx context.Context, core string, params url.Values) ([]byte, *Response, error) {
	endpoint := c.base.JoinPath(core, "select").String()

	type result struct {
		body []byte
		resp *Response
	}
	r, err := scouterrors.RetryWithResult(ctx, c.retry, func() (result, error) {
		return scouterrors.CircuitExecute(c.breaker, scouterrors.IsRetryable, func() (result, error) {
			body, resp, err := c.do(ctx, endpoint, params)
			return result{body, resp}, err
		})
	})
	if err != nil {
		slog.Warn("solr_request_failed",
			slog.String("core", core),
			slog.String("error", err.Error()))
		return nil, nil, err
	}
	return r.body, r.resp, nil
}

// Ping checks that core answers a trivial query.
func (c *Client) Ping(ctx context.Context, core string) error {
	_, _, err := c.Select(ctx, core, url.Values{"q": {MatchAll}, "rows": {"0"}, "wt": {"json"}})
	return err
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) ([]byte, *Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, nil, scouterrors.InternalError("failed to build solr request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, scouterrors.NetworkError("failed to read solr response", err)
	}

	slog.Debug("solr_request",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	decoded, decodeErr := Decode(body)

	if resp.StatusCode >= 300 {
		msg := fmt.Sprintf("solr returned HTTP %d", resp.StatusCode)
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Msg != "" {
			msg += ": " + decoded.Error.Msg
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, nil, scouterrors.NetworkError(msg, nil).
				WithDetail("status", fmt.Sprint(resp.StatusCode))
		}
		return nil, nil, scouterrors.New(scouterrors.ErrCodeEngineStatus, msg, nil).
			WithDetail("status", fmt.Sprint(resp.StatusCode))
	}

	if decodeErr != nil {
		return nil, nil, scouterrors.New(scouterrors.ErrCodeMalformedResponse, "solr response is not valid JSON", decodeErr)
	}
	return body, decoded, nil
}

func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		// Caller cancelled: not retryable.
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return scouterrors.New(scouterrors.ErrCodeNetworkTimeout, "solr request timed out", err)
	}
	return scouterrors.NetworkError("solr is unreachable", err).
		WithSuggestion("check engine.solr.url and that Solr is running")
}
