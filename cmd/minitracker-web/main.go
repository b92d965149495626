package main

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"os"
	"time"

	"minitracker/internal/cache"
	"minitracker/internal/cli"
	apphttp "minitracker/internal/http"
	"minitracker/internal/log"
	"minitracker/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentApp, os.Stdout)
	logger.Info("Starting minitracker-web")

	cfg := cli.LoadAndValidateConfig(logger)

	client, err := cli.NewAPIClient(cfg, logger)
	if err != nil {
		logger.Error("Failed to create API client", log.FieldError, err.Error())
		os.Exit(1)
	}

	backend := cli.OpenBackend(context.Background(), cfg, logger)

	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	for _, c := range client.Cleaners() {
		cacheManager.Register(c)
	}
	// A zero TTL disables the listing cache, so there is nothing to sweep.
	if cfg.CacheTTL > 0 {
		cacheManager.Start(context.Background(), cfg.CacheTTL)
	}

	readyChecks := map[string]apphttp.ReadyCheck{}
	if backend.Pinger != nil {
		readyChecks["sessions"] = backend.Pinger.Ping
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:         net.JoinHostPort("", cfg.Port),
		CookieSecure: cfg.CookieSecure,
		RateLimitRPM: cfg.RateLimitRPM,
		Logger:       logger,
		ReadyChecks:  readyChecks,
	}, apphttp.Services{
		Accounts:  services.NewAccountService(client, backend.Store),
		Ledger:    services.NewLedgerService(client, backend.Store, backend.Publisher),
		Dashboard: services.NewDashboardService(client, backend.Store),
	})

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", log.FieldError, err.Error())
		}
		cacheManager.Stop()
		if backend.Cleanup != nil {
			if err := backend.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err.Error())
			}
		}
	})

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr, "api", cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error("HTTP server failed", log.FieldError, err.Error())
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
