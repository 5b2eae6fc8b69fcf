// ABOUTME: HTTP client for the remote uptime service
// ABOUTME: Establishes the epoch once, then fetches elapsed seconds with bounded retry
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anymaplay/uptime-go/internal/schedule"
	"github.com/anymaplay/uptime-go/internal/version"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultBaseURL    = "https://rng.dev.anymaplay.com"
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1000 * time.Millisecond
	DefaultTimeout    = 10 * time.Second

	uptimePath = "/uptime"

	// YYYYMMDD.HHMMSS
	startDateLen = 15

	maxBodyBytes = 64 << 10
)

const (
	opStartDate   = "start date"
	opUptime      = "uptime"
	opCurrentDate = "current date"
)

// Config holds client configuration
type Config struct {
	// BaseURL is the discovery endpoint; uptime is served at BaseURL + "/uptime"
	BaseURL string

	// MaxRetries is the retry budget per Uptime call (default: 3).
	// Negative disables retries.
	MaxRetries int

	// RetryDelay is the fixed wait between attempts (default: 1s)
	RetryDelay time.Duration

	// Timeout bounds each HTTP exchange when HTTPClient is nil (default: 10s)
	Timeout time.Duration

	HTTPClient *http.Client
	Scheduler  schedule.Scheduler
}

// Client talks to the uptime service. The epoch it establishes is owned by
// the instance and never changes once set.
type Client struct {
	config Config
	http   *http.Client
	sched  schedule.Scheduler
	id     string
	logger *log.Logger

	mu        sync.RWMutex
	startDate time.Time
	hasStart  bool
}

// New creates a client, filling defaults for unset config fields
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	switch {
	case config.MaxRetries == 0:
		config.MaxRetries = DefaultMaxRetries
	case config.MaxRetries < 0:
		config.MaxRetries = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	sched := config.Scheduler
	if sched == nil {
		sched = schedule.NewReal()
	}

	id := uuid.New().String()

	return &Client{
		config: config,
		http:   httpClient,
		sched:  sched,
		id:     id,
		logger: log.With("client", id[:8]),
	}
}

// ID returns the session identifier sent with every request
func (c *Client) ID() string {
	return c.id
}

// Uptime returns the current elapsed seconds since the epoch, fetching the
// epoch first if it is not yet known. Retryable failures are retried after
// a fixed delay until the budget is spent; the final failure is returned
// with its classification intact.
func (c *Client) Uptime(ctx context.Context) (int64, error) {
	budget := retry.WithMaxRetries(uint64(c.config.MaxRetries), retry.NewConstant(c.config.RetryDelay))
	remaining := c.config.MaxRetries

	for {
		start := time.Now()
		seconds, err := c.attempt(ctx)
		if err == nil {
			c.logger.Info("Uptime fetched",
				"seconds", seconds,
				"took", time.Since(start).Round(time.Millisecond))
			return seconds, nil
		}

		c.logger.Warn("Uptime fetch failed", "err", err)

		if ctx.Err() != nil || !IsRetryable(err) {
			return 0, err
		}

		delay, stop := budget.Next()
		if stop {
			c.logger.Error("Retry budget exhausted", "retries", c.config.MaxRetries)
			return 0, err
		}

		c.logger.Info("Retrying", "in", delay, "attempts_left", remaining)
		remaining--

		if derr := c.sched.Delay(ctx, delay); derr != nil {
			return 0, err
		}
	}
}

// attempt runs the full two-step exchange once
func (c *Client) attempt(ctx context.Context) (int64, error) {
	if !c.HasEpoch() {
		if err := c.fetchStartDate(ctx); err != nil {
			return 0, err
		}
	}
	return c.fetchUptime(ctx)
}

func (c *Client) fetchStartDate(ctx context.Context) error {
	body, err := c.get(ctx, opStartDate, c.config.BaseURL)
	if err != nil {
		return err
	}

	var resp struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return dataError(opStartDate, fmt.Errorf("malformed response: %w", err))
	}
	if resp.Date == "" {
		return dataError(opStartDate, errors.New("no date in response"))
	}

	date, err := ParseStartDate(resp.Date)
	if err != nil {
		return dataError(opStartDate, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasStart {
		return nil
	}
	c.startDate = date
	c.hasStart = true
	c.logger.Info("Start date initialized", "date", date.Format(time.RFC3339))
	return nil
}

func (c *Client) fetchUptime(ctx context.Context) (int64, error) {
	body, err := c.get(ctx, opUptime, c.config.BaseURL+uptimePath)
	if err != nil {
		return 0, err
	}

	seconds, err := parseElapsed(body)
	if err != nil {
		return 0, dataError(opUptime, err)
	}
	return seconds, nil
}

// get performs one GET and returns the body of a 2xx response
func (c *Client) get(ctx context.Context, op, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, unknownError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Client-Id", c.id)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, apiError(op, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, networkError(op, err)
	}
	return body, nil
}

// HasEpoch reports whether the start date has been established
func (c *Client) HasEpoch() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasStart
}

// StartDate returns the epoch, or ErrNotInitialized before the first
// successful start-date fetch
func (c *Client) StartDate() (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hasStart {
		return time.Time{}, ErrNotInitialized
	}
	return c.startDate, nil
}

// CurrentDate returns epoch + elapsedSeconds
func (c *Client) CurrentDate(elapsedSeconds int64) (time.Time, error) {
	start, err := c.StartDate()
	if err != nil {
		return time.Time{}, err
	}
	// time.Duration overflows past ~292 years, so add whole seconds instead
	base := start.Unix()
	if elapsedSeconds > math.MaxInt64-base {
		return time.Time{}, dataError(opCurrentDate, fmt.Errorf("elapsed %d out of range", elapsedSeconds))
	}
	return time.Unix(base+elapsedSeconds, 0).UTC(), nil
}

// ParseStartDate parses the fixed-width "YYYYMMDD.HHMMSS" UTC layout.
// Character 8 is a separator and is not inspected.
func ParseStartDate(s string) (time.Time, error) {
	if len(s) < startDateLen {
		return time.Time{}, fmt.Errorf("date %q: expected YYYYMMDD.HHMMSS", s)
	}

	iso := fmt.Sprintf("%s-%s-%sT%s:%s:%sZ",
		s[0:4], s[4:6], s[6:8], s[9:11], s[11:13], s[13:15])

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// parseElapsed decodes a body that must be a single non-negative integral
// JSON number
func parseElapsed(body []byte) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("malformed uptime data: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return 0, errors.New("malformed uptime data: trailing content")
	}

	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("malformed uptime data: expected number, got %T", v)
	}

	if i, err := n.Int64(); err == nil {
		if i < 0 {
			return 0, fmt.Errorf("malformed uptime data: negative value %d", i)
		}
		return i, nil
	}

	f, err := n.Float64()
	if err != nil || f < 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, fmt.Errorf("malformed uptime data: %s is not a non-negative integer", n)
	}
	return int64(f), nil
}
