// ABOUTME: Resilient JSON-over-HTTP client for external providers
// ABOUTME: Wraps requests in a circuit breaker and retries transient failures with backoff

package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/codeGROOVE-dev/retry"
	"github.com/sony/gobreaker"

	"github.com/harper/skycast/internal/logging"
)

// ErrCircuitOpen is returned while the provider's breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

// APIError is a non-2xx response from a provider.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether retrying may help.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Options configures a Client. Zero values pick the defaults below.
type Options struct {
	Name        string
	HTTPClient  *http.Client
	Timeout     time.Duration // default 10s
	Attempts    uint          // default 3
	Delay       time.Duration // default 500ms
	MaxDelay    time.Duration // default 5s
	MaxFailures uint32        // consecutive failures before the breaker opens, default 5
	OpenFor     time.Duration // default 1m
	UserAgent   string
	Logger      *log.Logger
}

// Client performs GET requests that decode JSON responses.
type Client struct {
	name      string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
	attempts  uint
	delay     time.Duration
	maxDelay  time.Duration
	userAgent string
	logger    *log.Logger
}

type response struct {
	status int
	body   []byte
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.Name == "" {
		opts.Name = "http"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.Delay <= 0 {
		opts.Delay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = time.Minute
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "skycast/1.0"
	}
	logger := logging.OrDiscard(opts.Logger).With("client", opts.Name)

	maxFailures := opts.MaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		name:      opts.Name,
		http:      opts.HTTPClient,
		breaker:   cb,
		attempts:  opts.Attempts,
		delay:     opts.Delay,
		maxDelay:  opts.MaxDelay,
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// GetJSON fetches endpoint with query and decodes the body into dst.
// 429 and 5xx responses and network errors are retried; other non-2xx
// responses return an *APIError immediately.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, dst any) error {
	u := endpoint
	if len(query) > 0 {
		u = endpoint + "?" + query.Encode()
	}

	var body []byte
	err := retry.Do(
		func() error {
			res, err := c.breaker.Execute(func() (interface{}, error) {
				return c.fetch(ctx, u)
			})
			if err != nil {
				if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
					return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrCircuitOpen, c.name))
				}
				return err
			}
			resp, ok := res.(*response)
			if !ok {
				return retry.Unrecoverable(fmt.Errorf("unexpected result type from circuit breaker"))
			}
			if resp.status < 200 || resp.status >= 300 {
				return retry.Unrecoverable(&APIError{StatusCode: resp.status, URL: endpoint, Body: snippet(resp.body)})
			}
			body = resp.body
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(c.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying request", "attempt", n+1, "url", endpoint, "err", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	return nil
}

// fetch performs one request. Transient failures are errors so the breaker
// counts them; other statuses come back as a response.
func (c *Client) fetch(ctx context.Context, u string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, URL: u, Body: snippet(body)}
	if apiErr.Temporary() {
		return nil, apiErr
	}
	return &response{status: resp.StatusCode, body: body}, nil
}

func snippet(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
