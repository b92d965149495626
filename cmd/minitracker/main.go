package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"minitracker/internal/cli"
	"minitracker/internal/config"
	"minitracker/internal/log"
	"minitracker/internal/services"
)

func main() {
	cli.LoadEnvFile()

	// Logs go to stderr so command output stays pipeable.
	logger := cli.SetupLogger(log.ComponentApp, os.Stderr)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.IntoContext(ctx, logger)

	os.Exit(run(ctx, cfg, logger, os.Args[1:]))
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) int {
	client, err := cli.NewAPIClient(cfg, logger)
	if err != nil {
		logger.Error("Failed to create API client", log.FieldError, err.Error())
		return 1
	}

	backend := cli.OpenBackend(ctx, cfg, logger)
	defer func() {
		if backend.Cleanup == nil {
			return
		}
		if err := backend.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	app := &cli.App{
		Accounts:  services.NewAccountService(client, backend.Store),
		Ledger:    services.NewLedgerService(client, backend.Store, backend.Publisher),
		Dashboard: services.NewDashboardService(client, backend.Store),
		Out:       os.Stdout,
		In:        os.Stdin,
	}

	err = app.Run(ctx, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrUsage):
		return 2
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
}
