// Package httpx is the outbound HTTP layer shared by the trend scraper, the
// generation providers, the media stager and the platform publishers.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"

	"github.com/ibeckermayer/postcycle/internal/types"
)

// UserAgent mimics a desktop browser; trend pages block obvious bots
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config tunes retries and rate limiting
type Config struct {
	// MaxRetries is the number of extra attempts after the first. Zero keeps
	// calls single-shot.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// RequestsPerMinute caps outbound calls per client; zero disables limiting
	RequestsPerMinute int

	// Timeout bounds a single attempt
	Timeout time.Duration
}

// Client wraps an http.Client with a retry policy and a rate limiter
type Client struct {
	http     *http.Client
	executor failsafe.Executor[*http.Response]
	limiter  *rate.Limiter
}

// New creates a client. A nil base uses a fresh http.Client.
func New(cfg Config, base *http.Client) *Client {
	if base == nil {
		base = &http.Client{}
	}
	if cfg.Timeout > 0 {
		clone := *base
		clone.Timeout = cfg.Timeout
		base = &clone
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		http:     base,
		executor: failsafe.With[*http.Response](NewRetryPolicy(cfg)),
		limiter:  limiter,
	}
}

// ShouldRetry retries transport errors, 5xx and 429 responses
func ShouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// NewRetryPolicy builds the failsafe retry policy for cfg
//
//nolint:bodyclose // *http.Response is a type parameter here, not a live body
func NewRetryPolicy(cfg Config) retrypolicy.RetryPolicy[*http.Response] {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}

	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(ShouldRetry).
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		Build()
}

// Do sends the request produced by build, rebuilding it for every attempt so
// request bodies can be replayed. Transport failures come back tagged as
// network errors.
func (c *Client) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	resp, err := c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", UserAgent)
		}
		return c.http.Do(req)
	})
	if err != nil {
		if resp != nil {
			// last failed attempt returned a response (5xx/429); let the caller map it
			return resp, nil
		}
		return nil, types.Tag(types.ErrNetwork, err)
	}
	return resp, nil
}

// ReadBody reads and closes resp.Body, capped at limit bytes
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, types.Tag(types.ErrNetwork, fmt.Errorf("failed to read response: %w", err))
	}
	return body, nil
}

// StatusError maps a non-success HTTP status to the failure taxonomy
func StatusError(service string, status int, body []byte) error {
	err := fmt.Errorf("%s returned status %d: %.300s", service, status, string(body))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.Tag(types.ErrAuth, err)
	case status == http.StatusTooManyRequests || status >= 500:
		return types.Tag(types.ErrNetwork, err)
	default:
		return types.Tag(types.ErrParse, err)
	}
}
