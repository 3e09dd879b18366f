package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pocket/internal/amqp"
	"pocket/internal/cli"
	"pocket/internal/config"
	applog "pocket/internal/log"
	"pocket/internal/services"
	"pocket/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pocketctl",
		Short:         "Manage the pocket expense ledger from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(expensesCmd())
	root.AddCommand(categoriesCmd())
	root.AddCommand(budgetCmd())
	root.AddCommand(balanceCmd())
	root.AddCommand(summaryCmd())
	root.AddCommand(sheetsCmd())
	return root
}

// app is the state a single command works on. Commands mutate the tracker;
// close flushes the resulting records to the store.
type app struct {
	cfg     *config.Config
	store   storage.Store
	writer  *services.StateWriter
	tracker *services.Tracker
	amqp    *amqp.Client
}

func openApp(ctx context.Context) (*app, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lc := applog.DefaultConfig()
	lc.Component = applog.ComponentCLI
	lc.Level = cfg.Level()
	lc.Output = os.Stderr
	applog.Setup(lc)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	store, err := cli.OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: store}
	var publisher services.Publisher
	if cfg.AMQPEnabled() {
		// The worker's periodic sweep uploads the change if the broker is down.
		if client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err == nil {
			a.amqp = client
			publisher = client
		}
	}

	a.writer = services.NewStateWriter(store, publisher, services.DefaultStateWriterConfig())
	if err := a.writer.Start(ctx); err != nil {
		a.closeStore()
		return nil, err
	}
	a.tracker, err = services.LoadTracker(ctx, store, services.TrackerOptions{
		Location: loc,
		Sink:     a.writer,
	})
	if err != nil {
		_ = a.writer.Stop(ctx)
		a.closeStore()
		return nil, fmt.Errorf("load stored state: %w", err)
	}
	return a, nil
}

func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := a.writer.Stop(ctx)
	a.closeStore()
	return err
}

func (a *app) closeStore() {
	if a.amqp != nil {
		_ = a.amqp.Close()
	}
	_ = a.store.Close()
}

// withApp opens the app, runs fn and always flushes.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush state: %w", err)
	}
	return runErr
}
