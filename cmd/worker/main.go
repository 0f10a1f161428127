package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"neomentor/internal/adapter/repo"
	"neomentor/internal/config"
	"neomentor/internal/infra"
	"neomentor/internal/infra/credentials"
	"neomentor/internal/progress"
	"neomentor/internal/storage"
	"neomentor/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("service", "worker").Logger()
	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)
	if err := repo.EnsureSchema(ctx, runner); err != nil {
		logger.Fatal().Err(err).Msg("worker: schema bootstrap failed")
	}

	var publisher progress.Publisher = progress.Discard{}
	if rdb, err := infra.NewRedisClient(ctx, cfg); err != nil {
		logger.Warn().Err(err).Msg("worker: redis unavailable, progress is stored but not streamed")
	} else {
		defer rdb.Close()
		publisher = progress.NewRedisBus(rdb)
	}

	workspace, err := storage.NewWorkspaceStore(cfg.WorkDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: workspace unavailable")
	}
	local, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: storage unavailable")
	}
	stores := storage.NewBackends(local, workspace)
	var uploads storage.ObjectStore = local
	if cfg.S3Enabled() {
		client, err := infra.NewS3Client(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: s3 client")
		}
		s3Store := storage.NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix)
		stores[storage.BackendS3] = s3Store
		uploads = s3Store
	}

	creds := credentials.NewStore(runner)
	var keys worker.Keys
	if keys.Gemini, err = creds.Resolve(ctx, credentials.Gemini, cfg.GeminiAPIKey); err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
	}
	if keys.OpenAI, err = creds.Resolve(ctx, credentials.OpenAI, cfg.OpenAIAPIKey); err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load openai api key from store")
	}
	if cfg.VoiceCloneURL, err = creds.Resolve(ctx, credentials.VoiceClone, cfg.VoiceCloneURL); err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load voice clone url from store")
	}

	collab, err := worker.NewCollaborators(ctx, cfg, keys, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure providers")
	}

	runs := repo.NewRunRepository(runner)
	artifacts := repo.NewArtifactRepository(runner)
	sweeper := &worker.Sweeper{
		Runs:      runs,
		Artifacts: artifacts,
		Stores:    stores,
		Workspace: workspace,
		Retention: cfg.RunRetention,
		Logger:    logger,
	}
	scheduler, err := sweeper.Schedule(ctx, cfg.CleanupSchedule)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: retention schedule")
	}
	defer scheduler.Stop()

	w := &worker.Worker{
		Runs:      runs,
		Logs:      repo.NewLogRepository(runner),
		Artifacts: artifacts,
		Uploads:   uploads,
		Workspace: workspace,
		Publisher: publisher,
		Pipeline:  collab.Pipeline,
		Logger:    logger,
		RunLogger: func(w io.Writer) zerolog.Logger {
			return infra.NewLogger(cfg.AppEnv, w).With().Str("service", "worker").Logger()
		},
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
