// Package oracle provides a best-effort USD price feed for the base asset.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds a single price fetch.
const DefaultTimeout = 10 * time.Second

// PriceSample is the latest known base-asset USD price. Value is strictly
// positive on every path; Fallback marks samples not obtained from a live
// fetch (the fixed default, before any fetch has succeeded).
type PriceSample struct {
	Value      decimal.Decimal
	ObservedAt time.Time
	Fallback   bool
}

// Client fetches and caches the base-asset USD price. Refresh is triggered
// by the caller; Current never fails and never returns a non-positive value.
type Client struct {
	endpoint     string
	assetID      string
	client       *http.Client
	defaultPrice decimal.Decimal

	mu   sync.Mutex
	last *PriceSample
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithDefaultPrice overrides the conservative default used before any
// successful fetch.
func WithDefaultPrice(p decimal.Decimal) Option {
	return func(c *Client) {
		c.defaultPrice = p
	}
}

// NewClient creates a price client for the given quote endpoint and asset
// identifier (e.g. "solana").
func NewClient(endpoint, assetID string, opts ...Option) *Client {
	c := &Client{
		endpoint:     endpoint,
		assetID:      assetID,
		client:       &http.Client{Timeout: DefaultTimeout},
		defaultPrice: decimal.NewFromInt(100),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh fetches a fresh price. On failure the previous sample is kept
// unchanged (stale-but-available); the error is returned for logging only
// and must not abort the caller's cycle.
func (c *Client) Refresh(ctx context.Context) error {
	price, err := c.fetch(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.last = &PriceSample{Value: price, ObservedAt: time.Now()}
	c.mu.Unlock()
	return nil
}

// Current returns the latest sample, or the fixed default when no fetch has
// ever succeeded. It never fails.
func (c *Client) Current() PriceSample {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last != nil {
		return *c.last
	}
	return PriceSample{Value: c.defaultPrice, ObservedAt: time.Now(), Fallback: true}
}

// fetch performs one GET against the quote service. Expected body shape:
// {"<assetID>": {"usd": 123.45}}.
func (c *Client) fetch(ctx context.Context) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s?ids=%s&vs_currencies=usd", c.endpoint, c.assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload map[string]map[string]json.Number
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("unmarshal response: %w", err)
	}

	usd, ok := payload[c.assetID]["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing usd price for %q", c.assetID)
	}
	price, err := decimal.NewFromString(usd.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price: %w", err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price %s", price)
	}
	return price, nil
}
