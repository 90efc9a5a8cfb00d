package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/walletscore/reputation-engine/configs"
	"github.com/walletscore/reputation-engine/internal/chain"
	"github.com/walletscore/reputation-engine/internal/events"
	"github.com/walletscore/reputation-engine/internal/jobs"
	"github.com/walletscore/reputation-engine/internal/repositories"
	"github.com/walletscore/reputation-engine/internal/scoring"
)

func main() {
	_ = godotenv.Load()

	cfg := configs.Load()
	setupLogging(cfg.Environment)

	log.Info().Str("environment", cfg.Environment).Msg("Starting wallet reputation scoring worker")

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

	scheduler := jobs.New()
	hourlyRefresh := jobs.NewHourlyRefresh(
		scoreRepo, walletRepo, transferRepo, reader, orchestrator,
		cfg.Chain.USDCAddress, 200*time.Millisecond,
	)
	outcomeMatcher := jobs.NewOutcomeMatcher(outcomeRepo, transferRepo, scoreRepo)
	anomalyDetector := jobs.NewAnomalyDetector(scoreRepo, outcomeRepo, walletRepo)

	mustAddJob(scheduler, "0 0 * * * *", hourlyRefresh)
	mustAddJob(scheduler, "0 0 */6 * * *", outcomeMatcher)
	mustAddJob(scheduler, "0 */15 * * * *", anomalyDetector)

	scheduler.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	cancel()
	scheduler.Stop()
	log.Info().Msg("Scoring worker shutdown complete")
}

func mustAddJob(s *jobs.Scheduler, schedule string, job jobs.Job) {
	if err := s.AddJob(schedule, job); err != nil {
		log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to register job")
	}
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
