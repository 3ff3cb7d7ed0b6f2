package main

import (
	"context"
	"errors"
	"time"

	"conti/internal/amqp"
	"conti/internal/cli"
	"conti/internal/config"
	"conti/internal/log"
	gsheet "conti/internal/sheets/google"
	"conti/internal/storage"
	"conti/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	logger.Info("Starting conti-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite repository", err)
	}

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, amqp.Queues{
		Events:  cfg.AMQPEventsQueue,
		Replies: cfg.AMQPRepliesQueue,
		Ledger:  cfg.AMQPLedgerQueue,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	mirror := worker.NewMirrorWorker(repo, sheetsClient)

	err = amqpClient.ConsumeRecordEvents(ctx, mirror.HandleRecordEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
	}

	cli.RunCleanup(logger, 10*time.Second, func(context.Context) error {
		return errors.Join(amqpClient.Close(), repo.Close())
	})
}
