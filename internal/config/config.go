// Package config holds the bot's configuration surface, loaded from
// environment variables with optional .env support.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the full configuration consumed by the trading core.
type Config struct {
	// Required
	PrivateKey string // secret key in any supported encoding
	TokenMint  string // target token mint address

	// Trading
	UsdTradeSize        decimal.Decimal
	CycleInterval       time.Duration
	SlippageBps         int
	PriorityFeeLamports uint64
	MinSolBalance       decimal.Decimal
	FeeReserveSol       decimal.Decimal
	PriceRefreshCycles  int
	ConfirmTimeout      time.Duration

	// Endpoints
	RpcEndpoint     string
	WsEndpoint      string // optional; enables WebSocket confirmation
	PriceEndpoint   string
	JupiterEndpoint string

	// Operational
	JournalPath string
	MetricsAddr string // optional; enables the /metrics server
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		UsdTradeSize:        decimal.NewFromInt(10),
		CycleInterval:       60 * time.Second,
		SlippageBps:         100,
		PriorityFeeLamports: 100_000,
		MinSolBalance:       decimal.NewFromFloat(0.05),
		FeeReserveSol:       decimal.NewFromFloat(0.01),
		PriceRefreshCycles:  1,
		ConfirmTimeout:      90 * time.Second,
		RpcEndpoint:         "https://api.mainnet-beta.solana.com",
		PriceEndpoint:       "https://api.coingecko.com/api/v3/simple/price",
		JupiterEndpoint:     "https://quote-api.jup.ag/v6",
		JournalPath:         "data/swaps.jsonl",
	}
}

// Load reads a .env file if present, applies VOLBOT_* environment variables
// on top of the defaults, and validates the result.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments inject plain env vars.
	_ = godotenv.Load()

	cfg := Defaults()

	setStr(&cfg.PrivateKey, "VOLBOT_PRIVATE_KEY")
	setStr(&cfg.TokenMint, "VOLBOT_TOKEN_MINT")

	setDecimal(&cfg.UsdTradeSize, "VOLBOT_USD_TRADE_SIZE")
	setDuration(&cfg.CycleInterval, "VOLBOT_CYCLE_INTERVAL")
	setInt(&cfg.SlippageBps, "VOLBOT_SLIPPAGE_BPS")
	setUint64(&cfg.PriorityFeeLamports, "VOLBOT_PRIORITY_FEE_LAMPORTS")
	setDecimal(&cfg.MinSolBalance, "VOLBOT_MIN_SOL_BALANCE")
	setDecimal(&cfg.FeeReserveSol, "VOLBOT_FEE_RESERVE_SOL")
	setInt(&cfg.PriceRefreshCycles, "VOLBOT_PRICE_REFRESH_CYCLES")
	setDuration(&cfg.ConfirmTimeout, "VOLBOT_CONFIRM_TIMEOUT")

	setStr(&cfg.RpcEndpoint, "VOLBOT_RPC_ENDPOINT")
	setStr(&cfg.WsEndpoint, "VOLBOT_WS_ENDPOINT")
	setStr(&cfg.PriceEndpoint, "VOLBOT_PRICE_ENDPOINT")
	setStr(&cfg.JupiterEndpoint, "VOLBOT_JUPITER_ENDPOINT")

	setStr(&cfg.JournalPath, "VOLBOT_JOURNAL_PATH")
	setStr(&cfg.MetricsAddr, "VOLBOT_METRICS_ADDR")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fails fast on missing or nonsensical required inputs.
func (c *Config) Validate() error {
	if c.PrivateKey == "" {
		return errors.New("VOLBOT_PRIVATE_KEY is required")
	}
	if c.TokenMint == "" {
		return errors.New("VOLBOT_TOKEN_MINT is required")
	}
	if !c.UsdTradeSize.IsPositive() {
		return fmt.Errorf("USD trade size must be positive, got %s", c.UsdTradeSize)
	}
	if c.CycleInterval <= 0 {
		return fmt.Errorf("cycle interval must be positive, got %s", c.CycleInterval)
	}
	if c.SlippageBps <= 0 || c.SlippageBps > 10_000 {
		return fmt.Errorf("slippage must be in (0, 10000] bps, got %d", c.SlippageBps)
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("confirm timeout must be positive, got %s", c.ConfirmTimeout)
	}
	return nil
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and parses cleanly.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDecimal(dst *decimal.Decimal, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			*dst = d
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
