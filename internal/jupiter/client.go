// Package jupiter is an HTTP client for the swap aggregation service.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"solana-volume-bot/internal/domain"
)

// DefaultTimeout bounds a single aggregator request.
const DefaultTimeout = 15 * time.Second

// Quote is one priced swap route. Immutable once obtained and valid only for
// the attempt that requested it; never cached across attempts.
type Quote struct {
	InputMint   string
	OutputMint  string
	InAmount    uint64 // smallest units of the input mint
	OutAmount   uint64 // smallest units of the output mint
	SlippageBps int

	// raw is the full quote payload, passed back verbatim to the build
	// endpoint.
	raw json.RawMessage
}

// Client talks to a Jupiter-compatible aggregator.
type Client struct {
	endpoint string
	client   *http.Client
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates an aggregator client for the given base endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type quotePayload struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	InAmount    string `json:"inAmount"`
	OutAmount   string `json:"outAmount"`
	SlippageBps int    `json:"slippageBps"`
}

// Quote requests a route for swapping amountRaw smallest units of inMint
// into outMint at the given slippage tolerance.
func (c *Client) Quote(ctx context.Context, inMint, outMint string, amountRaw uint64, slippageBps int) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inMint)
	q.Set("outputMint", outMint)
	q.Set("amount", strconv.FormatUint(amountRaw, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	body, err := c.get(ctx, "/quote?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQuoteFailure, err)
	}

	var payload quotePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: unmarshal quote: %v", domain.ErrQuoteFailure, err)
	}
	if payload.OutAmount == "" {
		return nil, fmt.Errorf("%w: quote missing output amount", domain.ErrQuoteFailure)
	}
	outAmount, err := strconv.ParseUint(payload.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parse output amount %q: %v", domain.ErrQuoteFailure, payload.OutAmount, err)
	}

	return &Quote{
		InputMint:   inMint,
		OutputMint:  outMint,
		InAmount:    amountRaw,
		OutAmount:   outAmount,
		SlippageBps: slippageBps,
		raw:         body,
	}, nil
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	PrioritizationFeeLamports uint64          `json:"prioritizationFeeLamports"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// SwapTransaction requests an executable unsigned transaction for the quote,
// addressed to userPubkey, and returns its decoded bytes.
func (c *Client) SwapTransaction(ctx context.Context, quote *Quote, userPubkey string, priorityFeeLamports uint64) ([]byte, error) {
	reqBody, err := json.Marshal(swapRequest{
		QuoteResponse:             quote.raw,
		UserPublicKey:             userPubkey,
		WrapAndUnwrapSol:          true,
		PrioritizationFeeLamports: priorityFeeLamports,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", domain.ErrTransactionBuild, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/swap", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrTransactionBuild, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", domain.ErrTransactionBuild, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrTransactionBuild, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d: %s", domain.ErrTransactionBuild, resp.StatusCode, string(body))
	}

	var payload swapResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", domain.ErrTransactionBuild, err)
	}
	if payload.SwapTransaction == "" {
		return nil, fmt.Errorf("%w: response missing transaction", domain.ErrTransactionBuild)
	}

	tx, err := base64.StdEncoding.DecodeString(payload.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", domain.ErrTransactionBuild, err)
	}
	return tx, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
