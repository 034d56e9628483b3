package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/cli"
	"github.com/spec-kit/helpdesk/internal/client"
	"github.com/spec-kit/helpdesk/internal/clock"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/continuity"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "helpdesk:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "cli")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := persistence.OpenSQLite(cfg.LocalStorePath)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer db.Close()

	local, err := continuity.NewSQLiteStore(ctx, db)
	if err != nil {
		return fmt.Errorf("prepare local store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}
	remote := client.New(httpClient, cfg.RemoteURL, cfg.APIKey, client.NewSessionStore(local), logger)
	clk := clock.Real()

	root := cli.NewRootCommand(cli.Dependencies{
		Accounts:      remote,
		Invoker:       remote,
		Probe:         continuity.NewProber(httpClient, cfg.RemoteURL, cfg.APIKey),
		Resolver:      continuity.NewResolver(remote, local, clk, logger),
		Clock:         clk,
		FallbackDelay: cfg.FallbackDelay(),
		Logger:        logger,
	})

	logger.Debug("helpdesk client starting", zap.String("remote", cfg.RemoteURL), zap.String("local_store", cfg.LocalStorePath))
	return root.ExecuteContext(ctx)
}
