package domain

import "errors"

// Error kinds surfaced by the trading core. Callers dispatch on these with
// errors.Is; diagnostic detail is carried by wrapping.
var (
	// ErrInvalidKey means no supported secret-key encoding matched. Fatal at startup.
	ErrInvalidKey = errors.New("invalid secret key")

	// ErrQuoteFailure means the aggregator could not produce a usable quote.
	ErrQuoteFailure = errors.New("quote failure")

	// ErrTransactionBuild means the aggregator could not build a swap transaction.
	ErrTransactionBuild = errors.New("transaction build failure")

	// ErrSigning means the unsigned payload could not be deserialized or signed.
	ErrSigning = errors.New("signing failure")

	// ErrSubmission means the signed transaction could not be broadcast.
	ErrSubmission = errors.New("submission failure")

	// ErrConfirmation means the network rejected the transaction on-chain.
	ErrConfirmation = errors.New("confirmation failure")

	// ErrConfirmationTimeout means the confirmation wait exceeded its ceiling.
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)
