package sheets

import (
	"context"

	"pocket/internal/core"
	"pocket/internal/storage"
)

// Ports for the remote spreadsheet that mirrors the local state.
type (
	// LedgerUploader replaces the remote copy of the ledger.
	LedgerUploader interface {
		ReplaceLedger(ctx context.Context, rec storage.LedgerRecord) error
	}

	// CategoryStore reads and replaces the remote user categories.
	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		ReplaceCategories(ctx context.Context, cats []core.Category) error
	}

	// ProfileStore reads the remote profile and confirms single field writes.
	ProfileStore interface {
		ReadProfile(ctx context.Context) (core.Profile, error)
		UpdateProfileField(ctx context.Context, field, value string) error
	}

	// Remote is everything the sync worker needs from the spreadsheet.
	Remote interface {
		LedgerUploader
		CategoryStore
		ProfileStore
	}
)
