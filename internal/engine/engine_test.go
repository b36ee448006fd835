package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-volume-bot/internal/domain"
	"solana-volume-bot/internal/jupiter"
	"solana-volume-bot/internal/oracle"
	"solana-volume-bot/internal/pipeline"
	"solana-volume-bot/internal/solana"
)

var testToken = domain.Asset{Symbol: "TOKEN", Mint: "TokenMint111111111111111111111111111111111", Decimals: 6}

type fakePrices struct {
	sample oracle.PriceSample
}

func (f *fakePrices) Refresh(ctx context.Context) error { return nil }
func (f *fakePrices) Current() oracle.PriceSample       { return f.sample }

type fakeBalances struct {
	lamports uint64
	token    solana.TokenBalance
	balErr   error
	tokErr   error
}

func (f *fakeBalances) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	return f.lamports, f.balErr
}

func (f *fakeBalances) GetTokenBalance(ctx context.Context, owner, mint string) (solana.TokenBalance, error) {
	return f.token, f.tokErr
}

// fakeSwapper mimics the pipeline contract: it builds a record from the
// sizing, passes it to the tracker exactly once, and returns it.
type fakeSwapper struct {
	tracker   *Tracker
	succeed   bool
	outAmount decimal.Decimal

	calls   int
	lastIn  domain.Asset
	lastDir domain.Direction
	sizing  pipeline.Sizing
}

func (f *fakeSwapper) Execute(ctx context.Context, in, out domain.Asset, direction domain.Direction, sizing pipeline.Sizing, slippageBps int) *domain.SwapAttemptRecord {
	f.calls++
	f.lastIn = in
	f.lastDir = direction
	f.sizing = sizing

	rec := &domain.SwapAttemptRecord{
		AttemptID:   uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Direction:   direction,
		InputMint:   in.Mint,
		OutputMint:  out.Mint,
		InputAmount: sizing.Amount(),
		InputUnit:   sizing.Unit(),
		Success:     f.succeed,
	}
	if f.succeed {
		sig := "sig-" + string(direction)
		rec.TransactionID = &sig
		rec.OutputAmount = f.outAmount
		notional := decimal.NewFromInt(10)
		rec.UsdNotional = &notional
	} else {
		rec.FailureStage = domain.StageQuote
	}
	if f.tracker != nil {
		f.tracker.Record(rec)
	}
	return rec
}

type fakeQuoter struct {
	outAmount uint64
	err       error
}

func (f *fakeQuoter) Quote(ctx context.Context, inMint, outMint string, amountRaw uint64, slippageBps int) (*jupiter.Quote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &jupiter.Quote{InputMint: inMint, OutputMint: outMint, InAmount: amountRaw, OutAmount: f.outAmount}, nil
}

type controllerFixture struct {
	ctrl     *Controller
	state    *EngineState
	swapper  *fakeSwapper
	balances *fakeBalances
	quoter   *fakeQuoter
}

func newFixture(priceUsd int64, lamports uint64, tokenRaw uint64) *controllerFixture {
	state := NewEngineState()
	tracker := NewTracker(state, nil, nil)
	swapper := &fakeSwapper{tracker: tracker, succeed: true, outAmount: decimal.RequireFromString("0.0005")}
	balances := &fakeBalances{lamports: lamports, token: solana.TokenBalance{Amount: tokenRaw, Decimals: testToken.Decimals}}
	quoter := &fakeQuoter{}

	ctrl := New(Options{
		Config: Config{
			UsdTradeSize:      decimal.NewFromInt(10),
			SlippageBps:       100,
			MinSolBalance:     decimal.RequireFromString("0.01"),
			FeeReserveSol:     decimal.RequireFromString("0.01"),
			PriceRefreshEvery: 1,
		},
		Token:    testToken,
		Pubkey:   "Owner111111111111111111111111111111111111",
		Prices:   &fakePrices{sample: oracle.PriceSample{Value: decimal.NewFromInt(priceUsd), ObservedAt: time.Now()}},
		Balances: balances,
		Swapper:  swapper,
		Quoter:   quoter,
		State:    state,
	})
	return &controllerFixture{ctrl: ctrl, state: state, swapper: swapper, balances: balances, quoter: quoter}
}

func TestRunCycle_BuySizesFromUsdTarget(t *testing.T) {
	// $10 at $150/SOL on a 1 SOL balance.
	f := newFixture(150, 1_000_000_000, 0)

	ok := f.ctrl.RunCycle(context.Background())
	require.True(t, ok)
	require.Equal(t, 1, f.swapper.calls)

	wantSpend := decimal.NewFromInt(10).Div(decimal.NewFromInt(150))
	assert.True(t, f.swapper.sizing.Amount().Equal(wantSpend), "got %s", f.swapper.sizing.Amount())
	assert.Equal(t, domain.UnitBase, f.swapper.sizing.Unit())
	assert.Equal(t, domain.DirectionBuy, f.swapper.lastDir)

	// State flipped and the purchase reference recorded.
	assert.Equal(t, domain.DirectionSell, f.state.NextDirection)
	assert.True(t, f.state.HasPurchase)
	assert.True(t, f.state.LastPurchasedTokenAmount.Equal(decimal.RequireFromString("0.0005")))
	wantNotional := wantSpend.Mul(decimal.NewFromInt(150))
	assert.True(t, f.state.LastTradeUsdNotional.Equal(wantNotional), "got %s", f.state.LastTradeUsdNotional)
}

func TestRunCycle_BuySkipsBelowMinimumBalance(t *testing.T) {
	f := newFixture(150, 5_000_000, 0) // 0.005 SOL, below the 0.01 minimum

	ok := f.ctrl.RunCycle(context.Background())
	assert.False(t, ok)
	assert.Zero(t, f.swapper.calls, "no swap below the operating minimum")
	// Skip-and-retry policy: direction unchanged, nothing counted.
	assert.Equal(t, domain.DirectionBuy, f.state.NextDirection)
	assert.Zero(t, f.state.TotalAttempts)
}

func TestRunCycle_BuyShrinksToBalance(t *testing.T) {
	// Target is 0.1 SOL ($10 at $100) but only 0.05 SOL is held.
	f := newFixture(100, 50_000_000, 0)

	ok := f.ctrl.RunCycle(context.Background())
	require.True(t, ok)
	require.Equal(t, 1, f.swapper.calls)

	// balance − fee reserve = 0.05 − 0.01
	wantSpend := decimal.RequireFromString("0.04")
	assert.True(t, f.swapper.sizing.Amount().Equal(wantSpend), "got %s", f.swapper.sizing.Amount())
}

func TestRunCycle_BuyFailureStillFlipsDirection(t *testing.T) {
	f := newFixture(150, 1_000_000_000, 0)
	f.swapper.succeed = false

	ok := f.ctrl.RunCycle(context.Background())
	assert.False(t, ok)
	assert.Equal(t, domain.DirectionSell, f.state.NextDirection)
	assert.False(t, f.state.HasPurchase)
	assert.Equal(t, int64(1), f.state.FailureCount)
}

func TestRunCycle_SellWithZeroBalanceSkipsAndForcesBuy(t *testing.T) {
	f := newFixture(150, 1_000_000_000, 0)
	f.state.NextDirection = domain.DirectionSell
	f.state.HasPurchase = true
	f.state.LastPurchasedTokenAmount = decimal.RequireFromString("0.0005")
	f.state.LastTradeUsdNotional = decimal.NewFromInt(10)

	ok := f.ctrl.RunCycle(context.Background())
	assert.False(t, ok)
	assert.Zero(t, f.swapper.calls)
	assert.Equal(t, domain.DirectionBuy, f.state.NextDirection)
	assert.Zero(t, f.state.TotalAttempts, "skipped cycle is not an attempt")
}

func TestRunCycle_SellWithoutPurchaseReferenceSkipsAndForcesBuy(t *testing.T) {
	f := newFixture(150, 1_000_000_000, 500)
	f.state.NextDirection = domain.DirectionSell

	ok := f.ctrl.RunCycle(context.Background())
	assert.False(t, ok)
	assert.Zero(t, f.swapper.calls)
	assert.Equal(t, domain.DirectionBuy, f.state.NextDirection)
}

func TestRunCycle_SellRateMatchingReconstructsNotional(t *testing.T) {
	// Scenario from the BUY test: 0.0005 tokens held, $10 notional to
	// recover. One token quotes to 133.333333333 SOL, i.e. ~$20000, so the
	// rate-matched quantity is ~0.0005 and gets capped at the balance.
	f := newFixture(150, 1_000_000_000, 500)
	f.state.NextDirection = domain.DirectionSell
	f.state.HasPurchase = true
	f.state.LastPurchasedTokenAmount = decimal.RequireFromString("0.0005")
	f.state.LastTradeUsdNotional = decimal.NewFromInt(10)
	f.quoter.outAmount = 133_333_333_333

	ok := f.ctrl.RunCycle(context.Background())
	require.True(t, ok)
	require.Equal(t, 1, f.swapper.calls)
	assert.Equal(t, domain.DirectionSell, f.swapper.lastDir)
	assert.Equal(t, domain.UnitToken, f.swapper.sizing.Unit())

	qty := f.swapper.sizing.Amount()
	balance := decimal.RequireFromString("0.0005")
	assert.True(t, qty.LessThanOrEqual(balance), "never sells more than held, got %s", qty)
	// The quantity's unit value reconstructs the $10 notional within a
	// fraction of a percent.
	unitUsd := decimal.RequireFromString("133.333333333").Mul(decimal.NewFromInt(150))
	recovered := qty.Mul(unitUsd)
	diff := recovered.Sub(decimal.NewFromInt(10)).Abs()
	assert.True(t, diff.LessThan(decimal.RequireFromString("0.1")), "recovered %s", recovered)

	assert.Equal(t, domain.DirectionBuy, f.state.NextDirection)
}

func TestRunCycle_SellCapsAtBalance(t *testing.T) {
	// Rate-matched quantity (1 token = $10 → 1.0 tokens) exceeds the held
	// 0.2 tokens.
	f := newFixture(100, 1_000_000_000, 200_000)
	f.state.NextDirection = domain.DirectionSell
	f.state.HasPurchase = true
	f.state.LastPurchasedTokenAmount = decimal.NewFromInt(1)
	f.state.LastTradeUsdNotional = decimal.NewFromInt(10)
	f.quoter.outAmount = 100_000_000 // 0.1 SOL per token = $10

	ok := f.ctrl.RunCycle(context.Background())
	require.True(t, ok)
	assert.True(t, f.swapper.sizing.Amount().Equal(decimal.RequireFromString("0.2")),
		"got %s", f.swapper.sizing.Amount())
}

func TestRunCycle_SellFallsBackToRecordedQuantity(t *testing.T) {
	f := newFixture(150, 1_000_000_000, 500)
	f.state.NextDirection = domain.DirectionSell
	f.state.HasPurchase = true
	f.state.LastPurchasedTokenAmount = decimal.RequireFromString("0.0008") // above balance
	f.state.LastTradeUsdNotional = decimal.NewFromInt(10)
	f.quoter.err = errors.New("aggregator down")

	ok := f.ctrl.RunCycle(context.Background())
	require.True(t, ok)
	// Recorded quantity capped at the held 0.0005.
	assert.True(t, f.swapper.sizing.Amount().Equal(decimal.RequireFromString("0.0005")),
		"got %s", f.swapper.sizing.Amount())
}

func TestVolumeAccounting_BuyThenSell(t *testing.T) {
	f := newFixture(150, 1_000_000_000, 500)

	// BUY
	require.True(t, f.ctrl.RunCycle(context.Background()))
	buyInput := f.swapper.sizing.Amount()

	// SELL with the proceeds; fake swapper reports 0.066 SOL out.
	f.balances.token = solana.TokenBalance{Amount: 500, Decimals: testToken.Decimals}
	f.quoter.outAmount = 133_333_333_333
	f.swapper.outAmount = decimal.RequireFromString("0.066")
	require.True(t, f.ctrl.RunCycle(context.Background()))

	want := buyInput.Add(decimal.RequireFromString("0.066"))
	assert.True(t, f.state.CumulativeVolumeBase.Equal(want), "got %s want %s", f.state.CumulativeVolumeBase, want)
	assert.Equal(t, int64(2), f.state.SuccessCount)
	assert.Zero(t, f.state.FailureCount)
}

func TestSnapshot_Format(t *testing.T) {
	f := newFixture(150, 1_000_000_000, 0)
	require.True(t, f.ctrl.RunCycle(context.Background()))

	snap := f.state.Snapshot()
	assert.Contains(t, snap, "Attempts:        1 (1 ok, 0 failed)")
	assert.Contains(t, snap, "Next direction:  SELL")
	assert.Contains(t, snap, "Open purchase:")
}
