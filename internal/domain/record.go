package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a trade cycle.
type Direction string

// Trade directions.
const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// AmountUnit labels which asset's units an input amount is expressed in.
type AmountUnit string

// Input amount units.
const (
	UnitBase  AmountUnit = "BASE"
	UnitToken AmountUnit = "TOKEN"
)

// Pipeline stage labels used in failure diagnostics and journal records.
const (
	StageAmount  = "amount"
	StageQuote   = "quote"
	StageBuild   = "build"
	StageSign    = "sign"
	StageSubmit  = "submit"
	StageConfirm = "confirm"
)

// SwapAttemptRecord describes one attempted swap, successful or not.
// Created once per pipeline invocation and never mutated after completion.
type SwapAttemptRecord struct {
	AttemptID     string           `json:"attempt_id"`
	Timestamp     time.Time        `json:"ts"`
	Direction     Direction        `json:"direction"`
	InputMint     string           `json:"input_mint"`
	OutputMint    string           `json:"output_mint"`
	InputAmount   decimal.Decimal  `json:"input_amount"`
	InputUnit     AmountUnit       `json:"input_unit"`
	OutputAmount  decimal.Decimal  `json:"output_amount"`
	UsdNotional   *decimal.Decimal `json:"usd_notional,omitempty"`
	TransactionID *string          `json:"transaction_id,omitempty"` // nil when submission never succeeded
	Success       bool             `json:"success"`
	FailureStage  string           `json:"failure_stage,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
}
