package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/chart"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/config"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/logger"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/pipeline"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/session"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/tiktok"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/web"
)

func main() {
	cfg, err := config.Load() // loads .env
	if err != nil {
		logger.New().WithError(err).Fatal("invalid configuration")
	}

	logger.Configure(cfg.LogLevel, cfg.Environment)
	log := logger.New()
	log.WithField("service", "tiktok-sound-video-analytics").
		WithField("environment", cfg.Environment).
		WithField("mock_platform", cfg.UseMock).
		Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := session.NewStore(cfg.SessionTTL)
	go sessions.Run(ctx, time.Minute)

	handler := web.NewServer(web.Deps{
		Config:   cfg,
		Fetcher:  pipeline.NewFetcher(tiktok.NewOpener(cfg), cfg.MaxFetchCount),
		Importer: pipeline.NewImporter(),
		Sessions: sessions,
		Renderer: chart.NewECharts(),
	})

	// a fetch of MAX_FETCH_COUNT videos is paced by sleep_after and can run for minutes
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithField("addr", srv.Addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	<-drained
	log.Info("stopped")
}
