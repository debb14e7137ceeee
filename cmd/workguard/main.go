package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"workguard360/config"
	"workguard360/core/appbootstrap"
	"workguard360/core/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	seed := flag.Bool("seed", false, "load the demo dataset and exit")
	sweep := flag.Bool("sweep", false, "run one escalation sweep and exit")
	flag.Parse()

	logger := newLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config load failed")
	}
	if strings.TrimSpace(cfg.AuthSecret) == "" {
		logger.Fatal().Msg("auth_secret is required (WG_AUTH_SECRET)")
	}

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database open failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	if *seed {
		if err := store.Seed(ctx, db, logger); err != nil {
			logger.Fatal().Err(err).Msg("seed failed")
		}
		return
	}

	app, err := appbootstrap.Compose(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap failed")
	}

	if *sweep {
		if err := app.Escalator.RunOnce(ctx); err != nil {
			logger.Fatal().Err(err).Msg("escalation sweep failed")
		}
		return
	}

	if err := app.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
	logger.Info().Msg("shutdown complete")
}

func newLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if strings.EqualFold(os.Getenv("WG_APP_ENV"), "development") {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}
