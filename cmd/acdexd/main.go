package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/acdex/params"
	"github.com/uhyunpark/acdex/pkg/api"
	"github.com/uhyunpark/acdex/pkg/exchange"
	"github.com/uhyunpark/acdex/pkg/exchange/round"
	"github.com/uhyunpark/acdex/pkg/ledger"
	"github.com/uhyunpark/acdex/pkg/storage"
	"github.com/uhyunpark/acdex/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	if err := os.MkdirAll(cfg.Node.DataDir, 0o755); err != nil {
		log.Fatalf("data dir: %v", err)
	}

	// Setup logging (write to both console and file)
	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	if !common.IsHexAddress(cfg.Node.PlatformAddress) {
		sugar.Fatalw("invalid_platform_address", "address", cfg.Node.PlatformAddress)
	}
	platformAddr := common.HexToAddress(cfg.Node.PlatformAddress)

	// ---- Ledgers ----
	// In-process devnet ledgers. The opening supply lands on the
	// platform account and becomes the first sale round's volume.
	tokens := ledger.NewTokenLedger("Academ Coin", "ACDM")
	tokens.Mint(platformAddr, cfg.Round.OpeningSupply)
	bank := ledger.NewBank()

	// ---- Storage ----
	store, err := storage.NewStore(filepath.Join(cfg.Node.DataDir, "state"))
	if err != nil {
		sugar.Fatalw("storage_init_failed", "err", err)
	}
	defer store.Close()

	// ---- Platform ----
	platform, err := exchange.New(exchange.Config{
		Account:       platformAddr,
		RoundDuration: cfg.Round.Duration,
		InitialPrice:  cfg.Round.InitialPrice,
		Pricing:       round.GrowthPricing(cfg.Round.GrowthBps, cfg.Round.Increment),
		BurnLeftover:  cfg.Round.BurnLeftover,
	}, tokens, bank, util.RealClock{}, exchange.Options{
		Store:  store,
		Logger: sugar,
	})
	if err != nil {
		sugar.Fatalw("platform_init_failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(platform)

	// Fan committed platform events out to websocket subscribers.
	platform.SetOnEvent(apiServer.BroadcastEvent)

	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Node.APIAddr)
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("node_started",
		"platform", platformAddr.Hex(),
		"round_duration", cfg.Round.Duration.String(),
		"initial_price", cfg.Round.InitialPrice,
		"opening_supply", cfg.Round.OpeningSupply)

	// Progress logging loop
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sugar.Info("shutting down")
			return
		case <-ticker.C:
			st := platform.Round()
			sugar.Infow("round_status",
				"kind", st.Kind.String(),
				"number", st.Number,
				"price", st.Price,
				"sale_volume", st.SaleVolume,
				"trade_volume", st.TradeVolume,
				"ends_at", st.EndTime)
		}
	}
}
