// Package sources fetches codes from the community wiki and the HoYoLAB
// stream companion API.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/PancyStudios/ZenoxGo/pkg/logger"
	"github.com/PancyStudios/ZenoxGo/pkg/models"
)

const (
	defaultAttempts = 3
	defaultDelay    = 2 * time.Second

	HoyolabBaseURL = "https://bbs-api-os.hoyolab.com"
	materialPath   = "/community/painter/wapi/circle/channel/guide/material"

	userAgent = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Mobile Safari/537.36"
)

// StatusError is returned for a non 2xx response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// transient reports whether a failed GET is worth another attempt
func transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	// context cancellation is final, everything else is a network error
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Client fetches both code sources
type Client struct {
	httpClient *http.Client
	hoyolabURL string
	wikiURL    func(models.Game) string

	attempts int
	delay    time.Duration
}

// Option configures a Client
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithHoyolabURL replaces the HoYoLAB API host
func WithHoyolabURL(base string) Option {
	return func(cl *Client) { cl.hoyolabURL = base }
}

// WithWikiURL replaces the per-game wiki page lookup
func WithWikiURL(fn func(models.Game) string) Option {
	return func(cl *Client) { cl.wikiURL = fn }
}

// WithRetry sets the attempt count and the first backoff delay
func WithRetry(attempts int, delay time.Duration) Option {
	return func(cl *Client) {
		cl.attempts = attempts
		cl.delay = delay
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		hoyolabURL: HoyolabBaseURL,
		wikiURL:    models.Game.WikiPage,
		attempts:   defaultAttempts,
		delay:      defaultDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a GET with exponential backoff on network errors, 5xx and 429
func (c *Client) get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.delay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	retries := 0
	if c.attempts > 1 {
		retries = c.attempts - 1
	}

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		var err error
		body, err = c.do(ctx, url, header)
		if err != nil && !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn(fmt.Sprintf("GET %s failed (attempt %d/%d), retrying in %s: %v", url, attempt, retries+1, next, err), "Sources")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
