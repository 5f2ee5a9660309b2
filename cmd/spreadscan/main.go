package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/smart845/QuantumTrader/internal/infrastructure/config"
	"github.com/smart845/QuantumTrader/internal/infrastructure/logger"
	"github.com/smart845/QuantumTrader/internal/infrastructure/svc"
)

func main() {
	logger.Setup("info")

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service context initialization failed")
	}
	defer sc.Close()

	log.Info().
		Str("config", *configPath).
		Str("provider", cfg.Gecko.BaseURL).
		Int("top_limit", cfg.Scan.TopLimit).
		Float64("min_spread_pct", cfg.Scan.MinSpreadPct).
		Bool("feed", cfg.Feed.Enabled).
		Msg("spreadscan started")

	h := sc.Start(ctx)

	// SIGHUP = 立即重新扫描
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			log.Info().Msg("manual refresh requested")
			h.RefreshNow()
		case <-h.Done():
			log.Info().Msg("spreadscan stopped")
			return
		}
	}
}
