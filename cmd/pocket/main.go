package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"pocket/internal/amqp"
	"pocket/internal/cache"
	"pocket/internal/cli"
	apphttp "pocket/internal/http"
	applog "pocket/internal/log"
	"pocket/internal/middleware/ratelimit"
	"pocket/internal/middleware/security"
	"pocket/internal/services"
	"pocket/internal/storage"
	"pocket/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	loc := cli.MustLocation(cfg)

	logger.Info("Starting pocket server", "port", cfg.Port, "backend", cfg.DataBackend, "timezone", loc.String())

	store := cli.MustOpenStore(cfg)
	defer store.Close()

	ctx := context.Background()

	remote, sheetsClient, err := cli.OpenRemote(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize remote", "error", err)
		os.Exit(1)
	}

	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - state changes are picked up by the worker's periodic sweep")
	}

	writer := services.NewStateWriter(store, publisher, services.DefaultStateWriterConfig())
	if err := writer.Start(ctx); err != nil {
		logger.Error("Failed to start state writer", "error", err)
		os.Exit(1)
	}

	tracker, err := services.LoadTracker(ctx, store, services.TrackerOptions{
		Location:  loc,
		Sink:      writer,
		Confirmer: remote,
	})
	if err != nil {
		logger.Error("Failed to load stored state", "error", err)
		os.Exit(1)
	}

	refresher := worker.NewCategoryRefresher(remote, tracker, cfg.CategoryRefreshInterval)
	if err := refresher.Start(ctx); err != nil {
		logger.Error("Failed to start category refresher", "error", err)
		os.Exit(1)
	}

	caches := cache.NewManager()
	if sheetsClient != nil {
		caches.Register("remote_categories", sheetsClient.CategoryCache())
	}
	caches.StartCleanup(10 * time.Minute)

	opts := apphttp.DefaultOptions()
	opts.Logger = logger.WithComponent(applog.ComponentHTTP)
	opts.RateLimit = ratelimit.DefaultConfig()
	opts.IPResolver = security.NewIPResolver()
	for _, cidr := range []string{"127.0.0.1/32", "::1/128"} {
		if err := opts.IPResolver.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}
	opts.Ready = readiness(store)

	srv := apphttp.NewServer(":"+cfg.Port, tracker, opts)
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := refresher.Stop(ctx); err != nil {
			logger.Error("Category refresher shutdown error", "error", err)
		}
		caches.Stop()
		// Flushes whatever the last requests enqueued.
		if err := writer.Stop(ctx); err != nil {
			logger.Error("State writer shutdown error", "error", err)
		}
	})

	logger.Info("Listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	m := srv.Metrics()
	logger.Info("Server stopped gracefully",
		"requests", m.TotalRequests,
		"avg_response_us", m.AverageResponseTime,
		"rate_limited", srv.RateLimited())
}

// readiness pings the store when it supports it.
func readiness(store storage.Store) func(context.Context) error {
	pinger, ok := store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return pinger.Ping
}
