package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	maxResponseSize   = 20 << 20
	maxRetryAfterWait = 30 * time.Second
)

// SessionOptions configure a per-source HTTP session.
type SessionOptions struct {
	UserAgent      string
	Timeout        time.Duration
	MinInterval    time.Duration // minimum spacing between two requests
	MaxRetries     int
	InitialBackoff time.Duration
	Transport      http.RoundTripper
}

// Session is the HTTP layer owned by exactly one source. It throttles
// requests, retries transient failures and honours Retry-After.
// A Session is not shared between sources.
type Session struct {
	name           string
	client         *http.Client
	limiter        *rate.Limiter
	userAgent      string
	maxRetries     int
	initialBackoff time.Duration
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

func NewSession(name string, opts SessionOptions) *Session {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}

	initialBackoff := opts.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = 200 * time.Millisecond
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Session{
		name: name,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		limiter:        limiter,
		userAgent:      opts.UserAgent,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
	}
}

// NewSourceSession builds a session from the source's own settings.
func NewSourceSession(sourceConfig *Config, userAgent string, maxRetries int) *Session {
	return NewSession(sourceConfig.Name, SessionOptions{
		UserAgent:   userAgent,
		Timeout:     sourceConfig.Settings.GetTimeout(),
		MinInterval: sourceConfig.Settings.GetMinRequestInterval(),
		MaxRetries:  maxRetries,
	})
}

func (s *Session) Name() string {
	return s.name
}

// Get fetches rawURL and returns the body of a 200 response.
func (s *Session) Get(ctx context.Context, rawURL string) (*Response, error) {
	if s == nil {
		return nil, errors.New("no session")
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.initialBackoff
	policy.MaxElapsedTime = 0

	retryPolicy := &retryAfterBackOff{BackOff: backoff.WithMaxRetries(policy, uint64(s.maxRetries))}

	var result *Response
	attempt := 0

	operation := func() error {
		attempt++

		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		resp, err := s.do(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			slog.Debug("Request failed", "source", s.name, "url", rawURL, "attempt", attempt, "error", err)
			return err
		}

		if isRetryableStatus(resp.StatusCode) {
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
				retryPolicy.wait = retryAfter(resp.Header, time.Now())
			}
			return fmt.Errorf("HTTP error: %d", resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
		}

		result = resp
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(retryPolicy, ctx)); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	return result, nil
}

func (s *Session) do(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        resp.Request.URL.String(),
	}, nil
}

// Close releases the session's idle connections. Safe on a nil session.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.client.CloseIdleConnections()
}

// retryAfterBackOff stretches the next backoff interval to the server's
// Retry-After hint. Once the wrapped policy stops, no wait happens at all.
type retryAfterBackOff struct {
	backoff.BackOff
	wait time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	wait := b.wait
	b.wait = 0

	if next == backoff.Stop {
		return next
	}
	return max(next, wait)
}

func (b *retryAfterBackOff) Reset() {
	b.wait = 0
	b.BackOff.Reset()
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter reads a Retry-After header given either in seconds or as an
// HTTP date. The result is capped so one source cannot stall the run.
func retryAfter(header http.Header, now time.Time) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}

	var wait time.Duration
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		wait = time.Duration(seconds * float64(time.Second))
	} else if at, err := http.ParseTime(value); err == nil {
		wait = at.Sub(now)
	}

	if wait < 0 {
		return 0
	}
	return min(wait, maxRetryAfterWait)
}
