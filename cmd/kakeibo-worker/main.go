package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"kakeibo/internal/amqp"
	"kakeibo/internal/backend"
	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	"kakeibo/internal/log"
	"kakeibo/internal/mirror/sheets"
	"kakeibo/internal/worker"
)

func main() {
	envErr := cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	if envErr != nil {
		logger.WarnContext(context.Background(), "Ignoring .env file", log.FieldError, envErr)
	}
	logger.InfoContext(context.Background(), "Starting kakeibo-worker")

	cfg, err := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Worker stopped with error", err)
	}
	logger.InfoContext(context.Background(), "Worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	mirror, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return fmt.Errorf("initialize sheets mirror: %w", err)
	}
	if err := mirror.EnsureHeader(ctx); err != nil {
		return fmt.Errorf("prepare mirror sheet: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets mirror ready",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	// The worker reads the store only for resync; events come from AMQP.
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	bcfg.AMQPURL = ""
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.ErrorContext(context.Background(), "Backend cleanup failed", log.FieldError, err)
		}
	}()

	events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer events.Close()

	w := worker.NewMirrorWorker(mirror, res.Store)

	// Resync finishes before consumption so both never write the same row.
	if cfg.MirrorResync {
		r, err := w.Resync(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Mirror resync failed",
				log.FieldOperation, log.OpResync,
				log.FieldError, err)
		} else {
			logger.InfoContext(ctx, "Mirror resynced",
				log.FieldOperation, log.OpResync,
				"upserted", r.Upserted,
				"removed", r.Removed)
		}
	}
	return events.ConsumeEvents(ctx, w.HandleEvent)
}
