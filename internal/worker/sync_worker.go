package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"pocket/internal/amqp"
	"pocket/internal/category"
	"pocket/internal/core"
	applog "pocket/internal/log"
	"pocket/internal/profile"
	"pocket/internal/sheets"
	"pocket/internal/storage"
)

// startupConcurrency bounds how many records are uploaded at once during
// the startup check. There are only three records, so this is also the max.
const startupConcurrency = 3

// ErrUnknownStore is returned for change messages naming a record this
// worker does not know how to upload.
var ErrUnknownStore = errors.New("unknown store")

// SyncWorker mirrors stored records to the remote spreadsheet.
type SyncWorker struct {
	store  storage.Store
	remote sheets.Remote
}

func NewSyncWorker(store storage.Store, remote sheets.Remote) *SyncWorker {
	return &SyncWorker{store: store, remote: remote}
}

// HandleStateChanged processes a single state-changed message from AMQP.
// The payload is read from storage, so a message for an older version
// uploads whatever is current.
func (w *SyncWorker) HandleStateChanged(ctx context.Context, msg *amqp.StateChangedMessage) error {
	slog.InfoContext(ctx, "Processing state change",
		"store", msg.Store,
		"version", msg.Version)

	rec, err := w.store.Load(ctx, msg.Store)
	if err != nil {
		return fmt.Errorf("load %s: %w", msg.Store, err)
	}
	if rec.SyncedVersion >= rec.Version {
		slog.DebugContext(ctx, "Record already synced",
			"store", rec.Name,
			"version", rec.Version)
		return nil
	}
	return w.sync(ctx, rec)
}

// StartupSync uploads every record whose latest version has not reached the
// remote yet. It recovers from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	pending, err := w.store.Pending(ctx)
	if err != nil {
		return fmt.Errorf("get pending records for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending records found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending records on startup, processing...",
		"count", len(pending))

	var synced atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(startupConcurrency)
	for _, rec := range pending {
		g.Go(func() error {
			if err := w.sync(gctx, rec); err != nil {
				return err
			}
			synced.Add(1)
			return nil
		})
	}
	err = g.Wait()

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced.Load())
	return err
}

func (w *SyncWorker) sync(ctx context.Context, rec storage.Stored) error {
	var err error
	switch rec.Name {
	case storage.LedgerStore:
		err = w.syncLedger(ctx, rec.Payload)
	case storage.CategoriesStore:
		err = w.syncCategories(ctx, rec.Payload)
	case storage.ProfileStore:
		err = w.syncProfile(ctx, rec.Payload)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownStore, rec.Name)
	}
	if err != nil {
		applog.LogError(ctx, "Failed to sync record", err, applog.OpSync,
			applog.NewFields().WithComponent(applog.ComponentWorker).WithRecord(rec.Name, rec.Version))
		return fmt.Errorf("sync %s: %w", rec.Name, err)
	}

	if err := w.store.MarkSynced(ctx, rec.Name, rec.Version); err != nil {
		// The upload worked; the next startup check uploads again.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"store", rec.Name,
			"version", rec.Version,
			"error", err)
		return nil
	}

	slog.InfoContext(ctx, "Successfully synced record",
		"store", rec.Name,
		"version", rec.Version)
	return nil
}

func (w *SyncWorker) syncLedger(ctx context.Context, payload []byte) error {
	var rec storage.LedgerRecord
	if err := storage.Decode(payload, &rec); err != nil {
		return err
	}
	return w.remote.ReplaceLedger(ctx, rec)
}

// syncCategories pushes the local user categories and keeps remote-only
// ones, so a category added elsewhere survives until it is merged locally.
// Categories deleted locally are dropped from the remote copy.
func (w *SyncWorker) syncCategories(ctx context.Context, payload []byte) error {
	var rec storage.CategoryRecord
	if err := storage.Decode(payload, &rec); err != nil {
		return err
	}
	remote, err := w.remote.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list remote categories: %w", err)
	}
	merged := category.New(rec.UserCategories, category.WithDeleted(rec.DeletedIDs))
	merged.MergeRemote(remote)
	return w.remote.ReplaceCategories(ctx, merged.User())
}

func (w *SyncWorker) syncProfile(ctx context.Context, payload []byte) error {
	var local core.Profile
	if err := storage.Decode(payload, &local); err != nil {
		return err
	}
	remote, err := w.remote.ReadProfile(ctx)
	if err != nil {
		return fmt.Errorf("read remote profile: %w", err)
	}
	if local.FullName != remote.FullName {
		if err := w.remote.UpdateProfileField(ctx, profile.FieldFullName, local.FullName); err != nil {
			return err
		}
	}
	if local.ProfilePicture != remote.ProfilePicture {
		if err := w.remote.UpdateProfileField(ctx, profile.FieldPicture, local.ProfilePicture); err != nil {
			return err
		}
	}
	return nil
}
