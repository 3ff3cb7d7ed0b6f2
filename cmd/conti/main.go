package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"conti/internal/backend"
	"conti/internal/bot"
	"conti/internal/cli"
	apphttp "conti/internal/http"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/session"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	sessions := session.NewStore(cfg.SessionMaxUsers, cfg.SessionTTL)
	sessions.StartCleanup(cfg.SessionCleanupInterval, func(removed int) {
		logger.Debug("Expired conversation states removed",
			log.FieldComponent, log.ComponentSession,
			"removed", removed)
	})

	dispatcher := bot.NewDispatcher(
		ledger.NewService(be.Store, be.Notifier),
		ledger.NewReporter(be.Store),
		sessions,
	)

	srv := apphttp.NewServer(":"+cfg.Port, dispatcher, logger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              be.Ready,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting conti server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", be.AMQP != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if be.AMQP != nil {
		g.Go(func() error {
			err := be.AMQP.ConsumeChatEvents(gctx, cfg.DispatchConcurrency, dispatcher.Handle)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, serving chat events over HTTP only")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
	}

	cli.RunCleanup(logger, 10*time.Second, func(context.Context) error {
		sessions.Stop()
		if be.Cleanup != nil {
			return be.Cleanup()
		}
		return nil
	})
}
