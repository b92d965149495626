package main

import (
	"context"
	"errors"
	"os"
	"time"

	"minitracker/internal/amqp"
	"minitracker/internal/api"
	"minitracker/internal/cli"
	"minitracker/internal/log"
	"minitracker/internal/services"
	gsheet "minitracker/internal/sheets/google"
	"minitracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentWorker, os.Stdout)
	logger.Info("Starting minitracker-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	sess, err := api.SessionFromToken(cfg.ExportAPIToken)
	if err != nil {
		logger.Error("Invalid export API token", log.FieldError, err.Error())
		os.Exit(1)
	}

	client, err := cli.NewAPIClient(cfg, logger)
	if err != nil {
		logger.Error("Failed to create API client", log.FieldError, err.Error())
		os.Exit(1)
	}

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.ExportSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}

	// The service session is never stored, so there is nothing to forget
	// when its token expires.
	dashboards := services.NewDashboardService(client, nil)
	exportWorker := worker.NewExportWorker(dashboards, sheetsClient, client, sess, cfg.ExportInterval, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := exportWorker.Stop(shutdownCtx); err != nil {
			logger.Error("Export worker shutdown failed", log.FieldError, err.Error())
		}
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close failed", log.FieldError, err.Error())
		}
	})
	ctx = log.IntoContext(ctx, logger)

	if err := exportWorker.Start(ctx); err != nil {
		logger.Error("Failed to start export worker", log.FieldError, err.Error())
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeEntryChanged(ctx, exportWorker.HandleEntryChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err.Error())
		}
	}()

	logger.Info("Export worker running",
		log.FieldUserID, sess.UserID,
		"interval", cfg.ExportInterval.String(),
		"spreadsheet_id", cfg.GoogleSpreadsheetID)

	cli.WaitForShutdown(ctx, done)
}
