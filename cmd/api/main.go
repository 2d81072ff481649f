package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stickerforge/internal/compositor"
	"stickerforge/internal/http/handlers"
	httpapi "stickerforge/internal/http/httpapi"
	"stickerforge/internal/infra"
	"stickerforge/internal/labels"
	"stickerforge/internal/metrics"
	"stickerforge/internal/providers/image"
	"stickerforge/internal/sticker"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, infra.LogOptionsFromConfig(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := image.NewFromConfig(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure image provider")
	}
	if err := generator.Ready(); err != nil {
		logger.Warn().Err(err).Str("provider", cfg.ImageProvider).Msg("api: generation disabled until a credential is configured")
	}

	comp, err := compositor.NewDefault(cfg.OutputSize, cfg.BadgeFontSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure compositor")
	}

	initial, err := labels.Load(cfg.LabelsFile, cfg.LabelSet)
	if err != nil {
		logger.Fatal().Err(err).Str("file", cfg.LabelsFile).Msg("api: failed to load labels")
	}

	collector := metrics.NewCollector()
	orch, err := sticker.NewOrchestrator(sticker.Options{
		Generator:  generator,
		Compositor: comp,
		Logger:     &logger,
		Recorder:   collector,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure orchestrator")
	}
	session := sticker.NewSession(orch, initial)

	app := handlers.NewApp(ctx, session, &logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          &logger,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Metrics:         collector.Handler(),
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("provider", cfg.ImageProvider).
			Int("labels", len(initial)).
			Msg("api: listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	orch.Clear()
	logger.Info().Msg("api: server stopped")
}
