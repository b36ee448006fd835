package solana

import (
	"context"
	"time"
)

// RPCClient defines the ledger operations the trading core needs.
type RPCClient interface {
	// GetBalance retrieves the native balance for a public key, in lamports.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenBalance retrieves the aggregate token balance for a mint owned
	// by the given account. A missing token account reads as zero.
	GetTokenBalance(ctx context.Context, owner, mint string) (TokenBalance, error)

	// GetTokenDecimals retrieves the smallest-unit precision of a mint.
	GetTokenDecimals(ctx context.Context, mint string) (uint8, error)

	// SendTransaction broadcasts a signed, base64-encoded transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, signedBase64 string) (string, error)
}

// Confirmer reports the final status of a submitted transaction within a
// bounded wait. Implementations distinguish on-chain rejection
// (domain.ErrConfirmation) from an exceeded ceiling
// (domain.ErrConfirmationTimeout).
type Confirmer interface {
	Confirm(ctx context.Context, signature string, timeout time.Duration) error
}

// TokenBalance is a raw token amount plus its precision.
type TokenBalance struct {
	Amount   uint64 // smallest units
	Decimals uint8
}
