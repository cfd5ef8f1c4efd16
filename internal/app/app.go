// Package app wires configuration into a ready CampaignService.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fundledger/campaign-results/internal/api/handler"
	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
	"github.com/fundledger/campaign-results/internal/core/service"
	"github.com/fundledger/campaign-results/internal/infrastructure/config"
	mongostore "github.com/fundledger/campaign-results/internal/infrastructure/db/mongo"
	redisstore "github.com/fundledger/campaign-results/internal/infrastructure/db/redis"
	"github.com/fundledger/campaign-results/internal/infrastructure/ledger/ethereum"
)

// App owns the long-lived dependencies behind the campaign service.
type App struct {
	Connector ports.LedgerConnector
	Service   *service.CampaignService
	// Readiness probes by dependency name.
	Readiness map[string]handler.Pinger

	closers []func(context.Context) error
	log     zerolog.Logger
}

// New connects the configured backends. On error everything opened so far is
// closed again.
func New(ctx context.Context, cfg *config.Config, recorder service.Recorder, log zerolog.Logger) (_ *App, err error) {
	a := &App{Readiness: make(map[string]handler.Pinger), log: log}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
		}
	}()

	var store *mongostore.Store
	if cfg.NeedsMongo() {
		store, err = mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.Readiness["mongodb"] = store.Ping
	}

	switch cfg.Ledger.Backend {
	case config.BackendEthereum:
		deployments, perr := ethereum.ParseDeployments(cfg.Ledger.Deployments)
		if perr != nil {
			return nil, fmt.Errorf("LEDGER_DEPLOYMENTS: %w", perr)
		}
		a.Connector = ethereum.NewConnector(ethereum.Config{
			RPCURL:        cfg.Ledger.RPCURL,
			Deployments:   deployments,
			DefaultViewer: domain.NewIdentity(cfg.Ledger.ViewerAddress),
		}, nil, log.With().Str("ledger", "ethereum").Logger())
	case config.BackendMirror:
		mirror := mongostore.NewMirrorLedger(store.Database(), cfg.Ledger.Network)
		if ierr := mirror.EnsureIndexes(ctx); ierr != nil {
			log.Warn().Err(ierr).Msg("failed to ensure mirror ledger indexes")
		}
		a.Connector = mirror
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
	a.Readiness["ledger"] = ledgerPing(a.Connector, cfg.Ledger.Network)

	opts := service.Options{
		RecordConcurrency: cfg.Aggregator.RecordConcurrency,
		Recorder:          recorder,
		MaxSelectors:      cfg.Aggregator.MaxSelectors,
	}
	if cfg.Aggregator.Audit {
		opts.Audit = mongostore.NewLoadRepository(store.Database())
	}
	if cfg.Redis.Enabled {
		client, rerr := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if rerr != nil {
			return nil, rerr
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		a.Readiness["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		opts.Guard = redisstore.NewRefreshGuard(client, cfg.Redis.GuardTTL)
	}

	a.Service = service.NewCampaignService(a.Connector, opts, log.With().Str("component", "aggregator").Logger())

	log.Info().
		Str("backend", cfg.Ledger.Backend).
		Str("network", cfg.Ledger.Network).
		Int("record_concurrency", cfg.Aggregator.RecordConcurrency).
		Bool("audit", cfg.Aggregator.Audit).
		Bool("refresh_guard", cfg.Redis.Enabled).
		Msg("campaign service ready")
	return a, nil
}

// Close releases dependencies in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.log.Warn().Err(err).Msg("failed to close dependencies")
	}
}

// ledgerPing opens and closes a session, which covers node reachability and
// the deployment check.
func ledgerPing(conn ports.LedgerConnector, network string) handler.Pinger {
	return func(ctx context.Context) error {
		session, err := conn.Connect(ctx, ports.NetworkSelector{Network: network})
		if err != nil {
			return err
		}
		return session.Close()
	}
}
