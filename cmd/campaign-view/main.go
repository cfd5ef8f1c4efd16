package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/fundledger/campaign-results/internal/app"
	"github.com/fundledger/campaign-results/internal/core/domain"
	"github.com/fundledger/campaign-results/internal/core/ports"
	"github.com/fundledger/campaign-results/internal/infrastructure/config"
	"github.com/fundledger/campaign-results/internal/render"
	"github.com/fundledger/campaign-results/pkg/logger"
)

func main() {
	network := flag.String("network", "", "ledger network id (defaults to LEDGER_NETWORK)")
	viewer := flag.String("viewer", "", "viewer address (defaults to LEDGER_VIEWER_ADDRESS)")
	timeout := flag.Duration("timeout", 0, "load timeout (defaults to LOAD_TIMEOUT)")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *network != "" {
		cfg.Ledger.Network = *network
	}
	if *timeout > 0 {
		cfg.LoadTimeout = *timeout
	}

	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  true,
		Output:  os.Stderr,
		Service: "campaign-view",
	})

	a, err := app.New(ctx, cfg, nil, logger.Component("app"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.Close(ctx)

	sel := ports.NetworkSelector{Network: cfg.Ledger.Network}
	if *viewer != "" {
		sel.Viewer = domain.NewIdentity(*viewer)
	}

	fmt.Println(render.MsgLoading)
	loadCtx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
	view, err := a.Service.Load(loadCtx, sel)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		fmt.Fprintln(os.Stderr, retryHint(err))
		a.Close(ctx)
		os.Exit(1)
	}
	fmt.Print(render.Page(view))
}

func retryHint(err error) string {
	var aggErr *domain.AggregationError
	if errors.As(err, &aggErr) && aggErr.Stage == domain.StateConnecting {
		return "Failed to load ledger, accounts, or contract. Check the node and LEDGER_DEPLOYMENTS, then retry."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The ledger did not answer in time. Retry with a larger -timeout."
	}
	return "The campaign could not be read. Retry once the node is reachable."
}
