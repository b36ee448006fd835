// Package engine drives the alternating buy/sell trade cycle.
package engine

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"solana-volume-bot/internal/domain"
	"solana-volume-bot/internal/jupiter"
	"solana-volume-bot/internal/observability"
	"solana-volume-bot/internal/oracle"
	"solana-volume-bot/internal/pipeline"
	"solana-volume-bot/internal/solana"
)

// PriceSource supplies the base-asset USD price.
type PriceSource interface {
	Refresh(ctx context.Context) error
	Current() oracle.PriceSample
}

// BalanceReader reads on-chain balances for the controlled account.
type BalanceReader interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
	GetTokenBalance(ctx context.Context, owner, mint string) (solana.TokenBalance, error)
}

// Swapper executes one directional swap attempt.
type Swapper interface {
	Execute(ctx context.Context, in, out domain.Asset, direction domain.Direction, sizing pipeline.Sizing, slippageBps int) *domain.SwapAttemptRecord
}

// Quoter supplies reference quotes for rate probing.
type Quoter interface {
	Quote(ctx context.Context, inMint, outMint string, amountRaw uint64, slippageBps int) (*jupiter.Quote, error)
}

// Config holds the sizing parameters of the controller.
type Config struct {
	UsdTradeSize      decimal.Decimal
	SlippageBps       int
	MinSolBalance     decimal.Decimal // minimum operating balance, in SOL
	FeeReserveSol     decimal.Decimal // kept unspent to cover transaction fees
	PriceRefreshEvery int             // refresh price every N cycles; 1 = every cycle
}

// Controller orchestrates one buy-or-sell iteration per invocation. All
// state is touched only from the caller's goroutine.
type Controller struct {
	cfg      Config
	base     domain.Asset
	token    domain.Asset
	pubkey   string
	prices   PriceSource
	balances BalanceReader
	swapper  Swapper
	quoter   Quoter
	state    *EngineState
	metrics  *observability.Metrics

	cycles int
}

// Options for creating Controller.
type Options struct {
	Config   Config
	Token    domain.Asset
	Pubkey   string
	Prices   PriceSource
	Balances BalanceReader
	Swapper  Swapper
	Quoter   Quoter
	State    *EngineState
	Metrics  *observability.Metrics // optional
}

// New creates a Controller.
func New(opts Options) *Controller {
	return &Controller{
		cfg:      opts.Config,
		base:     domain.WrappedSOL,
		token:    opts.Token,
		pubkey:   opts.Pubkey,
		prices:   opts.Prices,
		balances: opts.Balances,
		swapper:  opts.Swapper,
		quoter:   opts.Quoter,
		state:    opts.State,
		metrics:  opts.Metrics,
	}
}

// State returns the engine state for reporting.
func (c *Controller) State() *EngineState {
	return c.state
}

// RunCycle executes one buy-or-sell iteration and reports whether a swap was
// attempted and succeeded. A false return is a warning to the scheduler, not
// a fatal condition.
func (c *Controller) RunCycle(ctx context.Context) bool {
	start := time.Now()
	c.cycles++

	if c.cfg.PriceRefreshEvery <= 1 || (c.cycles-1)%c.cfg.PriceRefreshEvery == 0 {
		if err := c.prices.Refresh(ctx); err != nil {
			log.Printf("WARN oracle: price refresh failed, using %s: %v", c.describeSample(), err)
		}
	}

	direction := c.state.NextDirection
	var ok bool
	if direction == domain.DirectionBuy {
		ok = c.runBuy(ctx)
	} else {
		ok = c.runSell(ctx)
	}

	if c.metrics != nil {
		result := "failure"
		if ok {
			result = "success"
		}
		c.metrics.CyclesTotal.WithLabelValues(string(direction), result).Inc()
		c.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}
	return ok
}

// runBuy sizes a purchase from the fixed USD trade size and the current
// price, shrinking to the available balance when needed. Shortfall policy:
// skip and retry next interval, never terminate.
func (c *Controller) runBuy(ctx context.Context) bool {
	price := c.prices.Current()
	if price.Fallback {
		log.Printf("WARN engine: no live price available, sizing against fallback %s USD", price.Value)
	}
	c.gaugePrice(price)

	lamports, err := c.balances.GetBalance(ctx, c.pubkey)
	if err != nil {
		log.Printf("ERROR engine: balance read failed, skipping cycle: %v", err)
		return false
	}
	balance := decimal.NewFromUint64(lamports).Shift(-int32(c.base.Decimals))
	c.gaugeSol(balance)

	if balance.LessThan(c.cfg.MinSolBalance) {
		log.Printf("WARN engine: balance %s SOL below minimum %s, skipping BUY", balance, c.cfg.MinSolBalance)
		return false
	}

	target := c.cfg.UsdTradeSize.Div(price.Value)
	spend := target
	if balance.LessThan(target.Add(c.cfg.FeeReserveSol)) {
		spend = balance.Sub(c.cfg.FeeReserveSol)
		if !spend.IsPositive() {
			log.Printf("WARN engine: balance %s SOL cannot cover fee reserve, skipping BUY", balance)
			return false
		}
		log.Printf("INFO engine: shrinking BUY from %s to %s SOL to fit balance", target, spend)
	}
	notional := spend.Mul(price.Value)

	log.Printf("INFO engine: BUY %s SOL (~%s USD) of %s", spend, notional.StringFixed(2), c.token.Mint)
	rec := c.swapper.Execute(ctx, c.base, c.token, domain.DirectionBuy, pipeline.BaseSizing(spend, notional), c.cfg.SlippageBps)

	// Direction flips on every attempt resolution, success or failure.
	c.state.NextDirection = domain.DirectionSell

	if rec.Success {
		c.state.HasPurchase = true
		c.state.LastPurchasedTokenAmount = rec.OutputAmount
		c.state.LastTradeUsdNotional = notional
		log.Printf("INFO engine: bought %s %s, tx %s", rec.OutputAmount, c.token.Symbol, *rec.TransactionID)
	}
	return rec.Success
}

// runSell sizes a sale so its current market value matches the USD notional
// of the last BUY, capped at the held balance. Zero balance or a missing
// purchase reference skips the cycle and forces the next direction to BUY.
func (c *Controller) runSell(ctx context.Context) bool {
	tb, err := c.balances.GetTokenBalance(ctx, c.pubkey, c.token.Mint)
	if err != nil {
		log.Printf("ERROR engine: token balance read failed, skipping cycle: %v", err)
		return false
	}
	balance := decimal.NewFromUint64(tb.Amount).Shift(-int32(c.token.Decimals))
	c.gaugeToken(balance)

	if tb.Amount == 0 {
		log.Printf("WARN engine: zero token balance, skipping SELL and switching to BUY")
		c.state.NextDirection = domain.DirectionBuy
		return false
	}
	if !c.state.HasPurchase {
		log.Printf("WARN engine: no recorded purchase to match, skipping SELL and switching to BUY")
		c.state.NextDirection = domain.DirectionBuy
		return false
	}

	price := c.prices.Current()
	c.gaugePrice(price)

	qty, err := c.rateMatchedQuantity(ctx, price, balance)
	if err != nil {
		// Fall back to the exact quantity recorded from the matching BUY.
		log.Printf("WARN engine: reference quote failed, selling recorded quantity: %v", err)
		qty = decimal.Min(c.state.LastPurchasedTokenAmount, balance)
		if !qty.IsPositive() {
			log.Printf("WARN engine: no sellable quantity, skipping SELL and switching to BUY")
			c.state.NextDirection = domain.DirectionBuy
			return false
		}
	}

	log.Printf("INFO engine: SELL %s %s (target %s USD)", qty, c.token.Symbol, c.state.LastTradeUsdNotional.StringFixed(2))
	rec := c.swapper.Execute(ctx, c.token, c.base, domain.DirectionSell, pipeline.TokenSizing(qty, c.state.LastTradeUsdNotional), c.cfg.SlippageBps)

	c.state.NextDirection = domain.DirectionBuy

	if rec.Success {
		log.Printf("INFO engine: sold for %s SOL, tx %s", rec.OutputAmount, *rec.TransactionID)
	}
	return rec.Success
}

// rateMatchedQuantity derives a live token-to-base rate from a one-token
// reference quote and sizes the sale to reconstruct the last BUY's USD
// notional at current prices. Never exceeds the held balance.
func (c *Controller) rateMatchedQuantity(ctx context.Context, price oracle.PriceSample, balance decimal.Decimal) (decimal.Decimal, error) {
	unitRaw := uint64(math.Pow10(int(c.token.Decimals)))
	q, err := c.quoter.Quote(ctx, c.token.Mint, c.base.Mint, unitRaw, c.cfg.SlippageBps)
	if err != nil {
		return decimal.Zero, err
	}

	unitSol := decimal.NewFromUint64(q.OutAmount).Shift(-int32(c.base.Decimals))
	unitUsd := unitSol.Mul(price.Value)
	if !unitUsd.IsPositive() {
		return decimal.Zero, domain.ErrQuoteFailure
	}

	qty := c.state.LastTradeUsdNotional.Div(unitUsd)
	if qty.GreaterThan(balance) {
		qty = balance
	}
	return qty, nil
}

func (c *Controller) describeSample() string {
	s := c.prices.Current()
	if s.Fallback {
		return "fallback default"
	}
	return "last known price"
}

func (c *Controller) gaugePrice(s oracle.PriceSample) {
	if c.metrics != nil {
		f, _ := s.Value.Float64()
		c.metrics.SolPriceUsd.Set(f)
	}
}

func (c *Controller) gaugeSol(balance decimal.Decimal) {
	if c.metrics != nil {
		f, _ := balance.Float64()
		c.metrics.SolBalance.Set(f)
	}
}

func (c *Controller) gaugeToken(balance decimal.Decimal) {
	if c.metrics != nil {
		f, _ := balance.Float64()
		c.metrics.TokenBalance.Set(f)
	}
}
