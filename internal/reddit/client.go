package reddit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the OAuth API host. Bearer-token requests must go here,
// not to www.reddit.com.
const DefaultBaseURL = "https://oauth.reddit.com"

// Retry and backoff constants.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
)

// Reddit rate-limit response headers.
const (
	headerRateRemaining = "X-Ratelimit-Remaining"
	headerRateReset     = "X-Ratelimit-Reset"
)

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// per Go convention "accept interfaces, return structs".
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the Reddit OAuth API.
// It handles request construction, authentication, retry with
// exponential backoff, rate limiting, and error classification.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	userAgent  string

	// limiter spaces outgoing requests. Nil means unlimited.
	limiter *rate.Limiter

	// resumeAt is set when the server reports an exhausted rate-limit window.
	mu       sync.Mutex
	resumeAt time.Time

	// sleepFunc is called to wait between retries. Defaults to timeSleep.
	// Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Reddit API client.
// baseURL is typically DefaultBaseURL. Reddit rejects requests with generic
// user agents, so userAgent should identify the application.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, userAgent string) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		userAgent:  userAgent,
		sleepFunc:  timeSleep,
	}
}

// LimitRequests caps outgoing requests at perMinute, with no burst.
// Zero or negative removes the limit.
func (c *Client) LimitRequests(perMinute int) {
	if perMinute <= 0 {
		c.limiter = nil
		return
	}

	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Do executes an HTTP request against the API. A non-nil form is sent as an
// application/x-www-form-urlencoded body and re-encoded on every attempt.
// The caller is responsible for closing the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, form url.Values) (*http.Response, error) {
	fullURL := c.baseURL + path

	var body []byte
	if form != nil {
		body = []byte(form.Encode())
	}

	var attempt int
	for {
		if err := c.throttle(ctx); err != nil {
			return nil, fmt.Errorf("reddit: request canceled: %w", err)
		}

		resp, err := c.doOnce(ctx, method, fullURL, body)
		if err != nil {
			// Context cancellation is not retryable.
			if ctx.Err() != nil {
				return nil, fmt.Errorf("reddit: request canceled: %w", ctx.Err())
			}

			// Token failures are not network failures and will not heal on retry.
			if IsAuthFailure(err) {
				return nil, err
			}

			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying after network error",
					slog.String("method", method),
					slog.String("path", path),
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", backoff),
					slog.String("error", err.Error()),
				)

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, fmt.Errorf("reddit: request canceled: %w", sleepErr)
				}

				attempt++

				continue
			}

			return nil, fmt.Errorf("reddit: %s %s failed after %d retries: %w: %w", method, path, maxRetries, ErrNetwork, err)
		}

		c.noteRateLimit(resp.Header)

		// 2xx: success.
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			c.logger.Debug("request succeeded",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
			)

			return resp, nil
		}

		// Read and close body for error responses.
		errBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying after HTTP error",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			if err := c.sleepFunc(ctx, backoff); err != nil {
				return nil, fmt.Errorf("reddit: request canceled: %w", err)
			}

			attempt++

			continue
		}

		if attempt > 0 {
			c.logger.Error("request failed after retries",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempts", attempt+1),
			)
		}

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
}

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(ctx context.Context, method, fullURL string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return c.httpClient.Do(req)
}

// throttle waits for the client-side limiter and for any server-announced
// rate-limit reset.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	wait := time.Until(c.resumeAt)
	c.mu.Unlock()

	if wait > 0 {
		c.logger.Info("rate limit window exhausted, pausing",
			slog.Duration("wait", wait),
		)

		if err := c.sleepFunc(ctx, wait); err != nil {
			return err
		}
	}

	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

// noteRateLimit records a pause when the server says no requests remain in
// the current window.
func (c *Client) noteRateLimit(h http.Header) {
	remaining, err := strconv.ParseFloat(h.Get(headerRateRemaining), 64)
	if err != nil || remaining >= 1 {
		return
	}

	reset, err := strconv.Atoi(h.Get(headerRateReset))
	if err != nil || reset <= 0 {
		return
	}

	c.mu.Lock()
	c.resumeAt = time.Now().Add(time.Duration(reset) * time.Second)
	c.mu.Unlock()
}

// retryBackoff returns the backoff duration for a retryable response.
// For 429 responses, Retry-After wins, then Reddit's X-Ratelimit-Reset.
func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		for _, h := range []string{"Retry-After", headerRateReset} {
			if v := resp.Header.Get(h); v != "" {
				if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
					return time.Duration(seconds) * time.Second
				}
			}
		}
	}

	return c.calcBackoff(attempt)
}

// calcBackoff computes exponential backoff with ±25% jitter.
func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}

	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	backoff += jitter

	return time.Duration(backoff)
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
