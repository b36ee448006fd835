package pipeline

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"solana-volume-bot/internal/domain"
)

// Sizing is a tagged union: an amount in base-asset units (BUY legs, derived
// from a USD target) or an explicit token quantity (SELL legs, sized from a
// prior purchase). Exactly one of the two is set.
type Sizing struct {
	base  *decimal.Decimal
	token *decimal.Decimal

	// usdNotional is the USD value this sizing represents, carried through
	// to the attempt record. Optional.
	usdNotional *decimal.Decimal
}

// BaseSizing sizes a swap in whole base-asset units.
func BaseSizing(amount, usdNotional decimal.Decimal) Sizing {
	return Sizing{base: &amount, usdNotional: &usdNotional}
}

// TokenSizing sizes a swap as an explicit token quantity.
func TokenSizing(amount, usdNotional decimal.Decimal) Sizing {
	return Sizing{token: &amount, usdNotional: &usdNotional}
}

// Unit reports which asset's units the sizing is expressed in.
func (s Sizing) Unit() domain.AmountUnit {
	if s.token != nil {
		return domain.UnitToken
	}
	return domain.UnitBase
}

// Amount returns the sized amount in whole units of the input asset.
func (s Sizing) Amount() decimal.Decimal {
	if s.token != nil {
		return *s.token
	}
	if s.base != nil {
		return *s.base
	}
	return decimal.Zero
}

// resolveRawAmount converts the sizing into the input asset's smallest
// indivisible unit. The conversion truncates toward zero, never rounding up,
// so a resolved amount can never overspend the sized amount.
func (s Sizing) resolveRawAmount(in domain.Asset) (uint64, error) {
	amount := s.Amount()
	if !amount.IsPositive() {
		return 0, fmt.Errorf("non-positive amount %s", amount)
	}

	raw := amount.Shift(int32(in.Decimals)).Truncate(0)
	if !raw.IsPositive() {
		return 0, fmt.Errorf("amount %s is below one smallest unit of %s", amount, in.Symbol)
	}
	if raw.Cmp(decimal.NewFromUint64(math.MaxUint64)) > 0 {
		return 0, fmt.Errorf("amount %s overflows raw units", amount)
	}
	return raw.BigInt().Uint64(), nil
}
