// Package main runs the volume bot: a timer-driven alternating buy/sell
// cycle of one token against SOL through a swap aggregator.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-volume-bot/internal/config"
	"solana-volume-bot/internal/domain"
	"solana-volume-bot/internal/engine"
	"solana-volume-bot/internal/journal"
	"solana-volume-bot/internal/jupiter"
	"solana-volume-bot/internal/observability"
	"solana-volume-bot/internal/oracle"
	"solana-volume-bot/internal/pipeline"
	"solana-volume-bot/internal/solana"
	"solana-volume-bot/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL config: %v", err)
	}

	identity, err := wallet.Resolve(cfg.PrivateKey)
	if err != nil {
		log.Fatalf("FATAL wallet: %v", err)
	}
	log.Printf("INFO wallet: resolved %s key for %s", identity.Format, identity.PublicKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("INFO bot: received signal %v, shutting down", sig)
		cancel()
	}()

	rpc := solana.NewHTTPClient(cfg.RpcEndpoint)

	// Fail fast on an invalid target token before trading anything.
	startupCtx, startupCancel := context.WithTimeout(ctx, 30*time.Second)
	decimals, err := rpc.GetTokenDecimals(startupCtx, cfg.TokenMint)
	startupCancel()
	if err != nil {
		log.Fatalf("FATAL bot: target token %s is invalid or unreachable: %v", cfg.TokenMint, err)
	}
	token := domain.Asset{Symbol: "TOKEN", Mint: cfg.TokenMint, Decimals: decimals}

	// Confirmation path: WebSocket subscription when an endpoint is
	// configured, status polling otherwise.
	var confirmer solana.Confirmer = rpc
	if cfg.WsEndpoint != "" {
		ws, err := solana.NewWSConfirmer(ctx, cfg.WsEndpoint, nil)
		if err != nil {
			log.Printf("WARN bot: websocket connect failed, falling back to polling: %v", err)
		} else {
			defer ws.Close()
			confirmer = ws
		}
	}

	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Fatalf("FATAL journal: %v", err)
	}
	defer func() {
		if err := jnl.Close(); err != nil {
			log.Printf("WARN journal: close failed: %v", err)
		}
	}()

	metrics := observability.NewMetrics("")
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Printf("WARN bot: metrics server stopped: %v", err)
			}
		}()
		log.Printf("INFO bot: metrics on %s/metrics", cfg.MetricsAddr)
	}

	prices := oracle.NewClient(cfg.PriceEndpoint, "solana")
	aggregator := jupiter.NewClient(cfg.JupiterEndpoint)

	state := engine.NewEngineState()
	tracker := engine.NewTracker(state, jnl, metrics)

	pipe := pipeline.New(pipeline.Options{
		Aggregator:     aggregator,
		Broadcaster:    rpc,
		Confirmer:      confirmer,
		Recorder:       tracker,
		Identity:       identity,
		PriorityFee:    cfg.PriorityFeeLamports,
		ConfirmTimeout: cfg.ConfirmTimeout,
	})

	ctrl := engine.New(engine.Options{
		Config: engine.Config{
			UsdTradeSize:      cfg.UsdTradeSize,
			SlippageBps:       cfg.SlippageBps,
			MinSolBalance:     cfg.MinSolBalance,
			FeeReserveSol:     cfg.FeeReserveSol,
			PriceRefreshEvery: cfg.PriceRefreshCycles,
		},
		Token:    token,
		Pubkey:   identity.PublicKey,
		Prices:   prices,
		Balances: rpc,
		Swapper:  pipe,
		Quoter:   aggregator,
		State:    state,
		Metrics:  metrics,
	})

	log.Printf("INFO bot: trading %s USD of %s every %s (slippage %d bps)",
		cfg.UsdTradeSize, cfg.TokenMint, cfg.CycleInterval, cfg.SlippageBps)

	run(ctx, ctrl, cfg.CycleInterval)

	log.Printf("INFO bot: stopped\n%s", state.Snapshot())
}

// run drives sequential cycles off one timer. Each cycle runs to completion
// in this goroutine before the next tick is honored, so at most one swap
// attempt is ever in flight; an in-flight cycle is interrupted on shutdown
// via context cancellation, after which its outcome is already recorded.
func run(ctx context.Context, ctrl *engine.Controller, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ok := ctrl.RunCycle(ctx); !ok {
				log.Printf("WARN bot: cycle completed without a successful swap")
			}
		}
	}
}
