package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/video-stream/autosub/internal/api"
	"github.com/video-stream/autosub/internal/api/middleware"
	"github.com/video-stream/autosub/internal/cache"
	"github.com/video-stream/autosub/internal/config"
	"github.com/video-stream/autosub/internal/events"
	"github.com/video-stream/autosub/internal/job"
	"github.com/video-stream/autosub/internal/logging"
	"github.com/video-stream/autosub/internal/pipeline"
	"github.com/video-stream/autosub/internal/storage"
	"github.com/video-stream/autosub/internal/subtitle/refine"
	"github.com/video-stream/autosub/internal/subtitle/transcribe"
)

const (
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 2 * time.Minute
)

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload and status service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *configFlag)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another autosub instance is already using %s", cfg.DataPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release data directory lock", "error", err)
		}
	}()

	logger.Info("configuration loaded", "config", fmt.Sprintf("%+v", cfg.Redacted()))

	var transcriber transcribe.Transcriber = transcribe.NewAssemblyAIClient(transcribe.Config{
		APIKey:          cfg.AssemblyAI.APIKey,
		BaseURL:         cfg.AssemblyAI.BaseURL,
		LanguageCode:    cfg.AssemblyAI.Language,
		PollInterval:    cfg.PollInterval(),
		MaxPollAttempts: cfg.AssemblyAI.MaxPollAttempts,
	}, transcribe.WithLogger(logger))
	if cfg.AssemblyAI.APIKey == "" {
		logger.Warn("ASSEMBLYAI_API_KEY is not set; every job will fail at transcription")
	}

	if cfg.CachePath != "" {
		db, err := cache.Open(cfg.CachePath)
		if err != nil {
			return fmt.Errorf("open transcript cache: %w", err)
		}
		defer db.Close()
		transcriber = cache.NewTranscriber(transcriber, db, logger)
		logger.Info("transcript cache enabled", "path", cfg.CachePath)
	}

	var completer refine.Completer
	if cfg.Refine.APIKey != "" {
		completer = refine.NewClaudeClient(refine.Config{
			APIKey:    cfg.Refine.APIKey,
			BaseURL:   cfg.Refine.BaseURL,
			Model:     cfg.Refine.Model,
			MaxTokens: cfg.Refine.MaxTokens,
		})
	} else {
		logger.Warn("ANTHROPIC_API_KEY is not set; subtitles will not be refined")
	}
	refiner := refine.NewRefiner(completer, logger)

	var publisher events.Publisher = events.Nop{}
	if cfg.Redis.URL != "" {
		rp, err := events.NewRedisPublisher(cfg.Redis.URL, cfg.Redis.Stream)
		if err != nil {
			logger.Warn("job events disabled", "error", err)
		} else {
			publisher = rp
			logger.Info("publishing job events", "stream", cfg.Redis.Stream)
		}
	}
	defer publisher.Close()

	store := job.NewStore(cfg.OutputPath)
	pipe := pipeline.New(transcriber, refiner, cfg.OutputPath, logger)
	runner := job.NewRunner(store, pipe.Handler(),
		job.WithPublisher(publisher),
		job.WithArtifactBaseURL(cfg.ArtifactBaseURL()),
		job.WithRunnerLogger(logger),
	)

	var limiter *middleware.RateLimiter
	if cfg.UploadRateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.UploadRateLimit, time.Minute)
		go limiter.RunCleanup(ctx)
	}

	uploads := storage.NewUploads(cfg.UploadPath, cfg.MaxUploadBytes())
	router := api.NewRouter(api.Deps{
		Uploads:     uploads,
		Store:       store,
		Launcher:    runner,
		RateLimiter: limiter,
		OutputPath:  cfg.OutputPath,
		StaticDir:   cfg.StaticDir,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", srv.Addr,
			"uploads", cfg.UploadPath,
			"output", cfg.OutputPath,
			"max_upload", humanize.IBytes(uint64(uploads.MaxBytes())),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
	defer cancelDrain()
	if err := runner.Wait(drainCtx); err != nil {
		logger.Warn("jobs still running at exit; they will remain in processing", "error", err)
	}
	return nil
}
