package engine

import (
	"log"
	"time"

	"github.com/shopspring/decimal"

	"solana-volume-bot/internal/domain"
	"solana-volume-bot/internal/observability"
)

// EngineState is the mutable trading state. It is owned by the single cycle
// goroutine; no locking is needed because every cycle runs to completion
// before the next starts.
type EngineState struct {
	NextDirection domain.Direction

	// Purchase reference for the matching SELL. Meaningful only when
	// HasPurchase is true, i.e. after at least one successful BUY.
	HasPurchase              bool
	LastPurchasedTokenAmount decimal.Decimal
	LastTradeUsdNotional     decimal.Decimal

	TotalAttempts int64
	SuccessCount  int64
	FailureCount  int64

	CumulativeVolumeBase decimal.Decimal
	CumulativeVolumeUsd  decimal.Decimal

	StartedAt time.Time
}

// NewEngineState returns a fresh state starting with a BUY.
func NewEngineState() *EngineState {
	return &EngineState{
		NextDirection: domain.DirectionBuy,
		StartedAt:     time.Now().UTC(),
	}
}

// Appender persists attempt records.
type Appender interface {
	Append(rec *domain.SwapAttemptRecord) error
}

// Tracker applies each completed attempt record to the engine state, the
// journal, and the metrics. The pipeline invokes Record exactly once per
// attempt.
type Tracker struct {
	state   *EngineState
	journal Appender
	metrics *observability.Metrics
}

// NewTracker creates a Tracker. journal and metrics may be nil.
func NewTracker(state *EngineState, journal Appender, metrics *observability.Metrics) *Tracker {
	return &Tracker{state: state, journal: journal, metrics: metrics}
}

// Record updates counters and volume and appends the record to the journal.
// Volume accumulates only for successful attempts: the base-asset side of a
// BUY is its input, of a SELL its output.
func (t *Tracker) Record(rec *domain.SwapAttemptRecord) {
	s := t.state
	s.TotalAttempts++
	if rec.Success {
		s.SuccessCount++

		var baseSide decimal.Decimal
		if rec.Direction == domain.DirectionBuy {
			baseSide = rec.InputAmount
		} else {
			baseSide = rec.OutputAmount
		}
		s.CumulativeVolumeBase = s.CumulativeVolumeBase.Add(baseSide)
		if rec.UsdNotional != nil {
			s.CumulativeVolumeUsd = s.CumulativeVolumeUsd.Add(*rec.UsdNotional)
		}
	} else {
		s.FailureCount++
	}

	if t.metrics != nil {
		t.metrics.SwapAttempts.Inc()
		if rec.Success {
			t.metrics.SwapSuccesses.Inc()
			f, _ := rec.InputAmount.Float64()
			if rec.Direction == domain.DirectionSell {
				f, _ = rec.OutputAmount.Float64()
			}
			t.metrics.VolumeBase.Add(f)
			if rec.UsdNotional != nil {
				usd, _ := rec.UsdNotional.Float64()
				t.metrics.VolumeUsd.Add(usd)
			}
		} else {
			t.metrics.SwapFailures.WithLabelValues(rec.FailureStage).Inc()
		}
	}

	if t.journal != nil {
		if err := t.journal.Append(rec); err != nil {
			log.Printf("WARN journal: append failed: %v", err)
		}
	}
}
