package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Stored
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Stored)}
}

func (m *MemoryStore) Save(_ context.Context, name string, payload []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[name]
	rec.Name = name
	rec.Payload = slices.Clone(payload)
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	m.records[name] = rec
	return rec.Version, nil
}

func (m *MemoryStore) Load(_ context.Context, name string) (Stored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[name]
	if !ok {
		return Stored{}, fmt.Errorf("load record %s: %w", name, ErrNotFound)
	}
	rec.Payload = slices.Clone(rec.Payload)
	return rec, nil
}

func (m *MemoryStore) MarkSynced(_ context.Context, name string, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[name]
	if !ok {
		return fmt.Errorf("mark record %s synced: %w", name, ErrNotFound)
	}
	if version > rec.SyncedVersion {
		rec.SyncedVersion = version
		m.records[name] = rec
	}
	return nil
}

func (m *MemoryStore) Pending(_ context.Context) ([]Stored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Stored
	for _, name := range StoreNames {
		if rec, ok := m.records[name]; ok && rec.SyncedVersion < rec.Version {
			rec.Payload = slices.Clone(rec.Payload)
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
