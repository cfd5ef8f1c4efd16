package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fundledger/campaign-results/internal/api"
	"github.com/fundledger/campaign-results/internal/api/metrics"
	"github.com/fundledger/campaign-results/internal/app"
	"github.com/fundledger/campaign-results/internal/core/ports"
	"github.com/fundledger/campaign-results/internal/infrastructure/config"
	"github.com/fundledger/campaign-results/internal/infrastructure/queue"
	"github.com/fundledger/campaign-results/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "campaign-server",
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	a, err := app.New(ctx, cfg, metrics.PromRecorder{}, logger.Component("app"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise campaign service")
	}

	dispatcher := queue.NewDispatcher(cfg.Aggregator.RefreshWorkers, a.Service, cfg.LoadTimeout, metrics.QueueDepth, logger.Component("refresh"))
	dispatcher.Start(ctx)
	// Warm the default network so the first request has a view to serve.
	dispatcher.Enqueue(ports.NetworkSelector{Network: cfg.Ledger.Network})

	e := api.NewRouter(api.RouterDeps{
		Service:        a.Service,
		Dispatcher:     dispatcher,
		Readiness:      a.Readiness,
		JWTSecret:      cfg.JWTSecret,
		DefaultNetwork: cfg.Ledger.Network,
		LoadTimeout:    cfg.LoadTimeout,
		Log:            logger.Component("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	dispatcher.Wait()
	a.Close(shutdownCtx)
	log.Info().Msg("bye")
}
