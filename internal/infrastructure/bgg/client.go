// Package bgg talks to the BoardGameGeek XML API v2 and normalizes its responses.
//
// BGG builds some responses asynchronously: the first call returns a "queued" message and
// the data shows up a couple of seconds later. The client retries on a fixed interval
// because BGG's queue latency is roughly constant.
package bgg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-bgg-gateway/internal/config"
	"github.com/go-bgg-gateway/internal/domain"
	"github.com/go-bgg-gateway/internal/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// MaxAttempts is the total number of calls per fetch, the first included.
	MaxAttempts = 3
	// RetryDelay is the fixed pause between queued attempts.
	RetryDelay = 2000 * time.Millisecond
	// RequestTimeout bounds a single upstream call.
	RequestTimeout = 20 * time.Second

	maxBodySize = 10 << 20
)

// Sleeper pauses between queued attempts.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client is the fetch-and-retry client for the BGG XML API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	limiter    *rate.Limiter
	sleep      Sleeper
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleeper replaces the context-aware timer used between queued attempts.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// NewClient creates a BGG client with outbound rate limiting.
// A non-positive cfg.RateLimit disables the limiter.
func NewClient(cfg config.BGG, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	c := &Client{
		httpClient: &http.Client{Timeout: RequestTimeout},
		baseURL:    cfg.BaseURL,
		apiToken:   cfg.APIToken,
		limiter:    rate.NewLimiter(limit, burst),
		sleep:      sleepContext,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ThingURL is the "thing" endpoint for id, with statistics included.
func (c *Client) ThingURL(id int) string {
	return fmt.Sprintf("%s/thing?id=%d&stats=1", c.baseURL, id)
}

// SearchURL is the board game search endpoint for query.
func (c *Client) SearchURL(query string) string {
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "boardgame")
	return c.baseURL + "/search?" + params.Encode()
}

// FetchXML GETs rawURL and parses the body. While BGG reports the request as queued it
// waits RetryDelay and tries again, up to MaxAttempts calls in total, then fails with
// domain.ErrUpstreamTimeout. Transport errors are returned as-is without retrying.
func (c *Client) FetchXML(ctx context.Context, rawURL string) (*Document, error) {
	for attempt := 1; ; attempt++ {
		doc, err := c.get(ctx, rawURL)
		if err != nil {
			metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		msg, queued := QueueMessage(doc)
		if !queued {
			metrics.BGGRequestsTotal.WithLabelValues("ok").Inc()
			return doc, nil
		}
		metrics.BGGRequestsTotal.WithLabelValues("queued").Inc()
		if attempt >= MaxAttempts {
			return nil, fmt.Errorf("BGG queue timeout: %s: %w", msg, domain.ErrUpstreamTimeout)
		}
		c.logger.Debug("bgg request queued, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.String("message", msg),
		)
		if err := c.sleep(ctx, RetryDelay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) get(ctx context.Context, rawURL string) (*Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("bgg rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create bgg request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bgg request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read bgg response: %w", err)
	}
	// 202 is how BGG acknowledges a queued request; the body carries the message.
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("bgg returned %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return Parse(body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
