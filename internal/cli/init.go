// Package cli provides the initialization steps shared by cmd/pocket,
// cmd/pocket-worker and cmd/pocketctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pocket/internal/config"
	applog "pocket/internal/log"
	"pocket/internal/sheets"
	"pocket/internal/sheets/google"
	"pocket/internal/sheets/memory"
	"pocket/internal/storage"
)

// SetupLogger installs a text logger at cfg's level for component and
// returns it.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		lc.Level = cfg.Level()
	}
	return applog.Setup(lc)
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the record store selected by DATA_BACKEND.
func OpenStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DataBackend {
	case "memory":
		slog.Info("Using in-memory store; state is lost on exit")
		return storage.NewMemoryStore(), nil
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", cfg.SQLiteDBPath, err)
		}
		slog.Info("Using SQLite store", "path", cfg.SQLiteDBPath)
		return repo, nil
	}
	return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
}

// MustOpenStore is OpenStore that exits the process on failure.
func MustOpenStore(cfg *config.Config) storage.Store {
	store, err := OpenStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return store
}

// OpenRemote connects to the configured spreadsheet, or returns an
// in-process stand-in seeded from RemoteCategoriesFile when none is set.
func OpenRemote(ctx context.Context, cfg *config.Config) (sheets.Remote, *google.Client, error) {
	if !cfg.SheetsEnabled() {
		slog.Info("No spreadsheet configured, using in-process remote",
			"categories_file", cfg.RemoteCategoriesFile)
		return memory.NewFromFile(cfg.RemoteCategoriesFile), nil, nil
	}
	opts := google.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		ExpensesSheet:   cfg.GoogleExpensesSheet,
		CategoriesSheet: cfg.GoogleCategoriesSheet,
		ProfileSheet:    cfg.GoogleProfileSheet,
	}
	oauth := OAuthCredentials(cfg)

	var client *google.Client
	var err error
	if cfg.GoogleServiceAccountJSON == "" && cfg.GoogleServiceAccountFile == "" && oauth.IsSet() {
		client, err = google.NewWithOAuth(ctx, opts, oauth)
	} else {
		client, err = google.NewWithServiceAccount(ctx, opts, cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect to spreadsheet: %w", err)
	}
	slog.Info("Google Sheets remote ready", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, client, nil
}

// OAuthCredentials collects the OAuth user settings from cfg.
func OAuthCredentials(cfg *config.Config) google.OAuthCredentials {
	return google.OAuthCredentials{
		ClientJSON: cfg.GoogleOAuthClientJSON,
		ClientFile: cfg.GoogleOAuthClientFile,
		TokenJSON:  cfg.GoogleOAuthTokenJSON,
		TokenFile:  cfg.GoogleOAuthTokenFile,
	}
}

// MustLocation resolves the configured calendar or exits.
func MustLocation(cfg *config.Config) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		slog.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}
	return loc
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished.
func GracefulShutdown(timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			slog.Warn("Shutdown timeout reached")
		} else {
			slog.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
