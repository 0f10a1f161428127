package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"neomentor/internal/adapter/repo"
	"neomentor/internal/config"
	"neomentor/internal/http/handlers"
	"neomentor/internal/http/httpapi"
	"neomentor/internal/infra"
	"neomentor/internal/infra/credentials"
	"neomentor/internal/infra/geoip"
	"neomentor/internal/media"
	"neomentor/internal/middleware"
	"neomentor/internal/progress"
	"neomentor/internal/providers/voice"
	"neomentor/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("service", "api").Logger()
	if err := cfg.RequireDatabase(); err != nil {
		logger.Fatal().Err(err).Msg("api: invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)
	if err := repo.EnsureSchema(ctx, runner); err != nil {
		logger.Fatal().Err(err).Msg("api: schema bootstrap failed")
	}

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: redis connection failed")
	}
	defer rdb.Close()
	bus := progress.NewRedisBus(rdb)

	workspace, err := storage.NewWorkspaceStore(cfg.WorkDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: workspace unavailable")
	}
	local, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: storage unavailable")
	}
	stores := storage.NewBackends(local, workspace)
	if cfg.S3Enabled() {
		client, err := infra.NewS3Client(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: s3 client")
		}
		stores[storage.BackendS3] = storage.NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix)
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	}
	var lookup middleware.CountryLookup
	if resolver != nil {
		defer resolver.Close()
		lookup = resolver.Lookup()
	}

	voiceURL, err := credentials.NewStore(runner).Resolve(ctx, credentials.VoiceClone, cfg.VoiceCloneURL)
	if err != nil {
		logger.Warn().Err(err).Msg("api: voice clone url lookup failed")
	}
	var cloner *voice.Client
	if voiceURL != "" {
		cloner, err = voice.NewClient(voice.Options{
			BaseURL:        voiceURL,
			Logger:         &logger,
			RequestTimeout: cfg.VoiceCloneTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("api: voice client")
		}
	} else {
		logger.Warn().Msg("api: VOICE_CLONE_URL not set, voice cloning disabled")
	}

	app := &handlers.App{
		Runs:      repo.NewRunRepository(runner),
		Logs:      repo.NewLogRepository(runner),
		Artifacts: repo.NewArtifactRepository(runner),
		Stores:    stores,
		Workspace: workspace,
		Media: media.New(media.Options{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			Logger:      &logger,
		}),
		Publisher: bus,
		Hub:       progress.NewHub(bus, middleware.AllowOrigin(cfg.CORSAllowedOrigins), logger),
		Checks: map[string]handlers.Check{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Logger:         logger,
		PublicBaseURL:  cfg.PublicBaseURL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		DefaultVoice:   cfg.DefaultVoicePath,
	}
	if cloner != nil {
		app.Voice = cloner
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		CountryLookup:   lookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api: listening")
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("api: http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}
	logger.Info().Msg("api: stopped")
}
