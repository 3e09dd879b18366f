package main

import (
	"context"
	"errors"
	"os"
	"time"

	"pocket/internal/amqp"
	"pocket/internal/cache"
	"pocket/internal/cli"
	applog "pocket/internal/log"
	"pocket/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting pocket-worker", "backend", cfg.DataBackend, "sync_interval", cfg.SyncInterval)

	store := cli.MustOpenStore(cfg)
	defer store.Close()

	remote, sheetsClient, err := cli.OpenRemote(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize remote", "error", err)
		os.Exit(1)
	}

	caches := cache.NewManager()
	if sheetsClient != nil {
		caches.Register("remote_categories", sheetsClient.CategoryCache())
	}
	caches.StartCleanup(10 * time.Minute)

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled - relying on the periodic sweep only")
	}

	syncWorker := worker.NewSyncWorker(store, remote)

	ctx, done := cli.GracefulShutdown(30*time.Second, func(context.Context) {
		caches.Stop()
	})

	// Anything saved while the worker was down is uploaded first.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSync(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeStateChanged(ctx, syncWorker.HandleStateChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := syncWorker.StartupSync(ctx); err != nil && ctx.Err() == nil {
					logger.Error("Periodic sync failed", "error", err)
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
