// Command rescan forces a fresh score computation for one wallet, bypassing
// the cache and any pending background refresh.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/walletscore/reputation-engine/configs"
	"github.com/walletscore/reputation-engine/internal/chain"
	"github.com/walletscore/reputation-engine/internal/events"
	"github.com/walletscore/reputation-engine/internal/repositories"
	"github.com/walletscore/reputation-engine/internal/scoring"
)

func main() {
	wallet := flag.String("wallet", "", "wallet address to rescan (0x...)")
	timeout := flag.Duration("timeout", 60*time.Second, "scan timeout")
	flag.Parse()

	_ = godotenv.Load()

	cfg := configs.Load()
	setupLogging(cfg.Environment)

	if *wallet == "" {
		log.Fatal().Msg("Usage: rescan -wallet 0x...")
	}

	db, err := repositories.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Pool.Close()

	reader, err := chain.NewReader(cfg.Chain)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize chain reader")
	}
	defer reader.Close()

	publisher, err := events.NewPublisher(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event publisher")
	}
	defer publisher.Close()

	scoreRepo := repositories.NewScoreRepository(db)
	walletRepo := repositories.NewWalletRepository(db)
	transferRepo := repositories.NewTransferRepository(db)
	outcomeRepo := repositories.NewOutcomeRepository(db)
	adaptiveRepo := repositories.NewAdaptiveRepository(db)

	orchestrator := scoring.NewOrchestrator(
		cfg, scoreRepo, walletRepo, transferRepo, outcomeRepo, adaptiveRepo, reader, publisher,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := orchestrator.ComputeOrGetScore(ctx, *wallet, scoring.Options{ForceRefresh: true})
	if err != nil {
		log.Fatal().Err(err).Str("wallet", *wallet).Msg("Rescan failed")
	}

	log.Info().
		Str("wallet", resp.Wallet).
		Int("score", resp.Score).
		Str("tier", string(resp.Tier)).
		Float64("confidence", resp.Confidence).
		Str("recommendation", string(resp.Recommendation)).
		Bool("sybil_flag", resp.SybilFlag).
		Msg("Rescan complete")
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
