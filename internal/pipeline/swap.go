// Package pipeline executes one directional swap: amount resolution, quote,
// transaction build, signing, submission, and confirmation.
package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"solana-volume-bot/internal/domain"
	"solana-volume-bot/internal/jupiter"
	"solana-volume-bot/internal/solana"
	"solana-volume-bot/internal/wallet"
)

// Aggregator provides quotes and unsigned swap transactions.
type Aggregator interface {
	Quote(ctx context.Context, inMint, outMint string, amountRaw uint64, slippageBps int) (*jupiter.Quote, error)
	SwapTransaction(ctx context.Context, quote *jupiter.Quote, userPubkey string, priorityFeeLamports uint64) ([]byte, error)
}

// Broadcaster submits signed transactions to the ledger.
type Broadcaster interface {
	SendTransaction(ctx context.Context, signedBase64 string) (string, error)
}

// Recorder receives each completed attempt record exactly once.
type Recorder interface {
	Record(rec *domain.SwapAttemptRecord)
}

// Pipeline executes swaps on behalf of one signing identity.
type Pipeline struct {
	aggregator     Aggregator
	broadcaster    Broadcaster
	confirmer      solana.Confirmer
	recorder       Recorder
	identity       *wallet.Identity
	priorityFee    uint64
	confirmTimeout time.Duration
}

// Options for creating Pipeline.
type Options struct {
	Aggregator     Aggregator
	Broadcaster    Broadcaster
	Confirmer      solana.Confirmer
	Recorder       Recorder
	Identity       *wallet.Identity
	PriorityFee    uint64 // lamports
	ConfirmTimeout time.Duration
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		aggregator:     opts.Aggregator,
		broadcaster:    opts.Broadcaster,
		confirmer:      opts.Confirmer,
		recorder:       opts.Recorder,
		identity:       opts.Identity,
		priorityFee:    opts.PriorityFee,
		confirmTimeout: opts.ConfirmTimeout,
	}
}

// Execute runs one swap attempt end to end and returns its record. The
// record is passed to the Recorder exactly once per invocation, whichever
// step fails. TransactionID is set as soon as submission succeeds, so a
// confirmation timeout still carries the id.
func (p *Pipeline) Execute(ctx context.Context, in, out domain.Asset, direction domain.Direction, sizing Sizing, slippageBps int) *domain.SwapAttemptRecord {
	rec := &domain.SwapAttemptRecord{
		AttemptID:   uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Direction:   direction,
		InputMint:   in.Mint,
		OutputMint:  out.Mint,
		InputAmount: sizing.Amount(),
		InputUnit:   sizing.Unit(),
		UsdNotional: sizing.usdNotional,
	}
	defer p.recorder.Record(rec)

	// Step 1: amount resolution (truncating, local, cannot overspend).
	amountRaw, err := sizing.resolveRawAmount(in)
	if err != nil {
		return fail(rec, domain.StageAmount, err)
	}

	// Step 2: quote acquisition. No partial state changes on failure.
	quote, err := p.aggregator.Quote(ctx, in.Mint, out.Mint, amountRaw, slippageBps)
	if err != nil {
		return fail(rec, domain.StageQuote, err)
	}

	// Step 3: transaction construction.
	unsigned, err := p.aggregator.SwapTransaction(ctx, quote, p.identity.PublicKey, p.priorityFee)
	if err != nil {
		return fail(rec, domain.StageBuild, err)
	}

	// Step 4: signing. No external dependency; a failure here is a pipeline
	// defect (malformed payload from the build service).
	signed, err := signTransaction(unsigned, p.identity.PrivateKey)
	if err != nil {
		return fail(rec, domain.StageSign, err)
	}

	// Step 5: submission. Transport retry is bounded inside the RPC client.
	signature, err := p.broadcaster.SendTransaction(ctx, base64.StdEncoding.EncodeToString(signed))
	if err != nil {
		return fail(rec, domain.StageSubmit, fmt.Errorf("%w: %v", domain.ErrSubmission, err))
	}
	rec.TransactionID = &signature

	// Step 6: confirmation, bounded by the configured ceiling.
	if err := p.confirmer.Confirm(ctx, signature, p.confirmTimeout); err != nil {
		return fail(rec, domain.StageConfirm, err)
	}

	rec.OutputAmount = decimal.NewFromUint64(quote.OutAmount).Shift(-int32(out.Decimals))
	rec.Success = true
	return rec
}

func fail(rec *domain.SwapAttemptRecord, stage string, err error) *domain.SwapAttemptRecord {
	rec.FailureStage = stage
	rec.FailureReason = err.Error()
	log.Printf("ERROR pipeline: %s %s->%s failed at %s: %v", rec.Direction, rec.InputMint, rec.OutputMint, stage, err)
	return rec
}
