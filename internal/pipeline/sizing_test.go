package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-volume-bot/internal/domain"
)

func TestResolveRawAmount_TruncatesNeverRoundsUp(t *testing.T) {
	sol := domain.WrappedSOL // 9 decimals

	cases := []struct {
		amount string
		want   uint64
	}{
		{"1", 1_000_000_000},
		{"0.5", 500_000_000},
		{"0.0666666666666667", 66_666_666},  // 10 USD / 150 USD per SOL
		{"0.000000001", 1},                  // exactly one lamport
		{"0.0000000019999", 1},              // truncates, never rounds up
		{"1.9999999999", 1_999_999_999},
	}

	for _, tc := range cases {
		amount := decimal.RequireFromString(tc.amount)
		s := BaseSizing(amount, decimal.Zero)

		raw, err := s.resolveRawAmount(sol)
		require.NoError(t, err, "amount %s", tc.amount)
		assert.Equal(t, tc.want, raw, "amount %s", tc.amount)

		// Property: resolved units never exceed amount * scale.
		bound := amount.Shift(int32(sol.Decimals))
		assert.True(t, decimal.NewFromUint64(raw).LessThanOrEqual(bound))
	}
}

func TestResolveRawAmount_TokenUnits(t *testing.T) {
	token := domain.Asset{Mint: "mint", Decimals: 6}
	s := TokenSizing(decimal.RequireFromString("0.0005"), decimal.Zero)

	raw, err := s.resolveRawAmount(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), raw)
	assert.Equal(t, domain.UnitToken, s.Unit())
}

func TestResolveRawAmount_Rejects(t *testing.T) {
	sol := domain.WrappedSOL

	_, err := BaseSizing(decimal.Zero, decimal.Zero).resolveRawAmount(sol)
	assert.Error(t, err)

	_, err = BaseSizing(decimal.RequireFromString("-1"), decimal.Zero).resolveRawAmount(sol)
	assert.Error(t, err)

	// Below one smallest unit.
	_, err = BaseSizing(decimal.RequireFromString("0.0000000001"), decimal.Zero).resolveRawAmount(sol)
	assert.Error(t, err)
}
