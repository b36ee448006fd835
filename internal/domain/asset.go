package domain

// Asset identifies a tradable asset on the ledger.
type Asset struct {
	Symbol   string // display symbol, e.g. "SOL"
	Mint     string // base58 mint address
	Decimals uint8  // smallest-unit precision (10^Decimals raw units per whole unit)
}

// WrappedSOL is the native base asset in its SPL-wrapped form, as used by
// swap aggregators.
var WrappedSOL = Asset{
	Symbol:   "SOL",
	Mint:     "So11111111111111111111111111111111111111112",
	Decimals: 9,
}
