// Package client provides the authenticated NetBox REST client with retries,
// throttling and error classification. It knows nothing about pagination.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/netbox-inventory/pkg/ratelimit"
	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies nbx to the server.
	DefaultUserAgent = "nbx/1.0"

	// maxBodyBytes caps a single response body.
	maxBodyBytes = 64 << 20

	// maxErrorBody caps the body excerpt kept on a TransportError.
	maxErrorBody = 512
)

// Client is the NetBox REST client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	throttle   *ratelimit.Tracker
	retry      retryPolicy
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the NetBox instance, with or without a trailing /api.
	BaseURL string

	// Token is the API token sent as "Authorization: Token <token>".
	Token string

	UserAgent string

	// Timeout bounds each individual HTTP request.
	Timeout time.Duration

	// VerifySSL disables certificate verification when false.
	VerifySSL bool

	// Retry overrides; zero keeps the per-class defaults.
	MaxAttempts    int
	InitialBackoff time.Duration

	// Throttle gates requests on the server's rate-limit signals. Optional.
	Throttle *ratelimit.Tracker

	// HTTPClient replaces the default transport (tests). Its Timeout is
	// left untouched.
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:   baseURL,
		Token:     token,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		VerifySSL: true,
	}
}

// New creates a new NetBox client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("api token is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	if cfg.MaxAttempts < 0 {
		return nil, fmt.Errorf("max_attempts must be >= 0 (got %d)", cfg.MaxAttempts)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/api")

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if !cfg.VerifySSL {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via verify_ssl=false
		}
		httpClient = &http.Client{Transport: transport}
	}

	logger := log.With().Str("component", "netbox-client").Logger()
	if !cfg.VerifySSL {
		logger.Warn().Str("base_url", base.String()).Msg("TLS certificate verification disabled")
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		throttle:   cfg.Throttle,
		retry:      overridePolicy(cfg.MaxAttempts, cfg.InitialBackoff),
		config:     cfg,
		logger:     logger,
	}, nil
}

// BaseURL returns the normalised instance URL without the /api suffix.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Request performs one authenticated request against an API path such as
// "dcim/devices/" and returns the decoded JSON body. Transient failures are
// retried; all other failures are returned as *TransportError or a context
// error from ContextError.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values) (record.Value, error) {
	endpoint := normalizePath(path)
	target := c.endpointURL(endpoint, query)

	startTime := time.Now()
	defer func() {
		netboxRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body record.Value
	err := retryWithBackoff(ctx, c.retry, func() error {
		if c.throttle != nil {
			if err := c.throttle.Wait(ctx); err != nil {
				return ContextError(ctx)
			}
		}
		v, err := c.do(ctx, method, endpoint, target)
		if err != nil {
			return err
		}
		body = v
		return nil
	})
	if err != nil {
		return record.Value{}, err
	}
	return body, nil
}

// Get is Request with method GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (record.Value, error) {
	return c.Request(ctx, http.MethodGet, path, query)
}

// Status fetches the instance status document (/api/status/).
func (c *Client) Status(ctx context.Context) (*record.Record, error) {
	v, err := c.Get(ctx, "status/", nil)
	if err != nil {
		return nil, err
	}
	rec := v.Record()
	if rec == nil {
		return nil, &TransportError{Kind: KindMalformed, URL: c.endpointURL("status/", nil), Err: record.ErrNotRecord}
	}
	return rec, nil
}

// do executes a single attempt.
func (c *Client) do(ctx context.Context, method, endpoint, target string) (record.Value, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, target, nil)
	if err != nil {
		return record.Value{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.config.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug().
		Str("method", method).
		Str("url", target).
		Msg("Executing NetBox request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return record.Value{}, ContextError(ctx)
		}
		te := classifyNetError(target, err)
		netboxErrorsTotal.WithLabelValues(string(te.Kind)).Inc()
		netboxRequestsTotal.WithLabelValues(endpoint, string(te.Kind)).Inc()
		c.logger.Warn().Err(err).Str("url", target).Str("kind", string(te.Kind)).Msg("NetBox request failed")
		return record.Value{}, te
	}
	defer resp.Body.Close()

	netboxRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if c.throttle != nil {
		if err := c.throttle.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return record.Value{}, ContextError(ctx)
		}
		te := classifyNetError(target, err)
		netboxErrorsTotal.WithLabelValues(string(te.Kind)).Inc()
		return record.Value{}, te
	}

	if resp.StatusCode >= 400 {
		te := &TransportError{
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       excerpt(data),
			URL:        target,
		}
		netboxErrorsTotal.WithLabelValues(string(te.Kind)).Inc()
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("url", target).
			Str("error_class", string(te.Class())).
			Msg("NetBox request error")
		return record.Value{}, te
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return record.Null(), nil
	}
	v, err := record.Decode(data)
	if err != nil {
		netboxErrorsTotal.WithLabelValues(string(KindMalformed)).Inc()
		return record.Value{}, &TransportError{
			Kind:       KindMalformed,
			StatusCode: resp.StatusCode,
			Body:       excerpt(data),
			URL:        target,
			Err:        err,
		}
	}
	return v, nil
}

func (c *Client) endpointURL(endpoint string, query url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + "/api/" + endpoint
	u.RawQuery = query.Encode()
	return u.String()
}

// normalizePath strips leading slashes and an "api/" prefix.
func normalizePath(path string) string {
	path = strings.TrimLeft(path, "/")
	path = strings.TrimPrefix(path, "api/")
	return path
}

func classifyNetError(target string, err error) *TransportError {
	te := &TransportError{Kind: KindNetwork, URL: target, Err: err}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		te.Kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		te.Kind = KindTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		te.Kind = KindConnectionRefused
	}
	return te
}

func excerpt(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
