// Package storage persists the tracker's state as three independent named
// records, each a JSON document.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pocket/internal/core"
)

// Record names. They are stable; stored data is keyed by them.
const (
	LedgerStore     = "expenses-storage"
	CategoriesStore = "categories-storage"
	ProfileStore    = "profile-storage"
)

// StoreNames lists every record in load order.
var StoreNames = []string{LedgerStore, CategoriesStore, ProfileStore}

// ErrNotFound is returned when a named record has never been written.
var ErrNotFound = errors.New("record not found")

type (
	// LedgerRecord is the persisted expense ledger.
	LedgerRecord struct {
		Expenses []core.Expense `json:"expenses"`
		Budget   decimal.Decimal `json:"budget"`
	}

	// CategoryRecord is the persisted set of user categories. Built-ins are
	// never stored. DeletedIDs keeps deleted user categories from being
	// merged back from the remote copy.
	CategoryRecord struct {
		UserCategories []core.Category `json:"userCategories"`
		DeletedIDs     []string        `json:"deletedCategoryIds,omitempty"`
	}

	// ProfileRecord is the persisted profile.
	ProfileRecord = core.Profile

	// Snapshot is every record at once.
	Snapshot struct {
		Ledger     LedgerRecord
		Categories CategoryRecord
		Profile    ProfileRecord
	}
)

// envelope wraps each record with a schema version.
type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// SchemaVersion is written into every envelope.
const SchemaVersion = 0

// Encode serializes a record for storage.
func Encode(v any) ([]byte, error) {
	state, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return json.Marshal(envelope{State: state, Version: SchemaVersion})
}

// Decode reads a record written by Encode into v.
func Decode(data []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.State) == 0 {
		return fmt.Errorf("decode envelope: missing state")
	}
	if err := json.Unmarshal(env.State, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// Stored is a record as kept by a Store.
type Stored struct {
	Name          string
	Payload       []byte
	Version       int64
	SyncedVersion int64
	UpdatedAt     time.Time
}

// Store keeps named records. Implementations must be safe for concurrent use.
type Store interface {
	// Save replaces the named record and bumps its version.
	Save(ctx context.Context, name string, payload []byte) (int64, error)
	// Load returns the named record or ErrNotFound.
	Load(ctx context.Context, name string) (Stored, error)
	// MarkSynced records that version of name has reached the remote.
	MarkSynced(ctx context.Context, name string, version int64) error
	// Pending lists records whose latest version has not been synced.
	Pending(ctx context.Context) ([]Stored, error)
	Close() error
}

// LoadInto decodes the named record into v. A record that was never saved
// leaves v untouched and reports false.
func LoadInto(ctx context.Context, s Store, name string, v any) (bool, error) {
	rec, err := s.Load(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := Decode(rec.Payload, v); err != nil {
		return false, fmt.Errorf("load %s: %w", name, err)
	}
	return true, nil
}

// LoadSnapshot reads all three records. Missing records load as empty.
func LoadSnapshot(ctx context.Context, s Store) (Snapshot, error) {
	var snap Snapshot
	if _, err := LoadInto(ctx, s, LedgerStore, &snap.Ledger); err != nil {
		return Snapshot{}, err
	}
	if _, err := LoadInto(ctx, s, CategoriesStore, &snap.Categories); err != nil {
		return Snapshot{}, err
	}
	if _, err := LoadInto(ctx, s, ProfileStore, &snap.Profile); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// SaveSnapshot writes all three records.
func SaveSnapshot(ctx context.Context, s Store, snap Snapshot) error {
	for name, v := range map[string]any{
		LedgerStore:     snap.Ledger,
		CategoriesStore: snap.Categories,
		ProfileStore:    snap.Profile,
	} {
		payload, err := Encode(v)
		if err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		if _, err := s.Save(ctx, name, payload); err != nil {
			return err
		}
	}
	return nil
}
