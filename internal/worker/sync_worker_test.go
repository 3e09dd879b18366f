package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pocket/internal/amqp"
	"pocket/internal/core"
	"pocket/internal/services"
	"pocket/internal/sheets/memory"
	"pocket/internal/storage"
)

func save(t *testing.T, store storage.Store, name string, v any) int64 {
	t.Helper()
	payload, err := storage.Encode(v)
	if err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	version, err := store.Save(context.Background(), name, payload)
	if err != nil {
		t.Fatalf("save %s: %v", name, err)
	}
	return version
}

func TestHandleStateChanged_UploadsLedger(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	remote := memory.New(nil)
	w := NewSyncWorker(store, remote)

	rec := storage.LedgerRecord{
		Expenses: []core.Expense{{ID: "e1", CategoryID: "food", Amount: decimal.RequireFromString("4.20"), Title: "Bread", Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}},
		Budget:   decimal.NewFromInt(100),
	}
	version := save(t, store, storage.LedgerStore, rec)

	if err := w.HandleStateChanged(ctx, amqp.NewStateChangedMessage(storage.LedgerStore, version)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got, uploads := remote.Ledger()
	if uploads != 1 || len(got.Expenses) != 1 || got.Expenses[0].ID != "e1" {
		t.Fatalf("unexpected upload %+v (uploads=%d)", got, uploads)
	}

	// Already synced: a duplicate message is a no-op.
	if err := w.HandleStateChanged(ctx, amqp.NewStateChangedMessage(storage.LedgerStore, version)); err != nil {
		t.Fatalf("handle duplicate: %v", err)
	}
	if _, uploads := remote.Ledger(); uploads != 1 {
		t.Errorf("expected no second upload, got %d", uploads)
	}
	if pending, _ := store.Pending(ctx); len(pending) != 0 {
		t.Errorf("expected nothing pending, got %d", len(pending))
	}
}

func TestHandleStateChanged_Errors(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	remote := memory.New(nil)
	w := NewSyncWorker(store, remote)

	if err := w.HandleStateChanged(ctx, amqp.NewStateChangedMessage(storage.LedgerStore, 1)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	save(t, store, "other-storage", map[string]string{})
	if err := w.HandleStateChanged(ctx, amqp.NewStateChangedMessage("other-storage", 1)); !errors.Is(err, ErrUnknownStore) {
		t.Errorf("expected ErrUnknownStore, got %v", err)
	}

	version := save(t, store, storage.LedgerStore, storage.LedgerRecord{})
	remote.SetErr(errors.New("quota exceeded"))
	if err := w.HandleStateChanged(ctx, amqp.NewStateChangedMessage(storage.LedgerStore, version)); err == nil {
		t.Fatal("expected remote error")
	}
	pending, _ := store.Pending(ctx)
	if len(pending) != 1 {
		t.Errorf("failed upload must stay pending, got %d", len(pending))
	}
}

func TestSyncCategoriesKeepsRemoteOnly(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	remote := memory.New([]core.Category{
		{ID: "r1", Name: "Garden"},
		{ID: "r2", Name: "books"}, // collides with a local name
		{ID: "food", Name: "Snacks"},
	})
	w := NewSyncWorker(store, remote)

	version := save(t, store, storage.CategoriesStore, storage.CategoryRecord{
		UserCategories: []core.Category{{ID: "u1", Name: "Books"}},
	})
	if err := w.HandleStateChanged(ctx, amqp.NewStateChangedMessage(storage.CategoriesStore, version)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := remote.ListCategories(ctx)
	if len(got) != 2 || got[0].ID != "u1" || got[1].ID != "r1" {
		t.Fatalf("unexpected remote categories %+v", got)
	}
}

// storeSink saves every enqueued record immediately.
type storeSink struct {
	t     *testing.T
	store storage.Store
}

func (s storeSink) Enqueue(name string, payload []byte) {
	if _, err := s.store.Save(context.Background(), name, payload); err != nil {
		s.t.Errorf("save %s: %v", name, err)
	}
}

func TestDeletedCategoryIsNotRestoredByRefresh(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	remote := memory.New(nil)
	w := NewSyncWorker(store, remote)
	tr := services.NewTracker(storage.Snapshot{}, services.TrackerOptions{
		Location: time.UTC,
		Sink:     storeSink{t: t, store: store},
	})
	refresher := NewCategoryRefresher(remote, tr, time.Hour)

	c, ok := tr.AddCategory(core.Category{Name: "Hobby"})
	if !ok {
		t.Fatal("add category rejected")
	}
	if err := w.StartupSync(ctx); err != nil {
		t.Fatalf("sync after add: %v", err)
	}
	if got, _ := remote.ListCategories(ctx); len(got) != 1 || got[0].ID != c.ID {
		t.Fatalf("expected the category upstream, got %+v", got)
	}

	if !tr.DeleteCategory(c.ID) {
		t.Fatal("delete category failed")
	}
	if err := w.StartupSync(ctx); err != nil {
		t.Fatalf("sync after delete: %v", err)
	}
	if got, _ := remote.ListCategories(ctx); len(got) != 0 {
		t.Errorf("deleted category still upstream: %+v", got)
	}

	if _, err := refresher.RefreshOnce(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, ok := tr.LookupCategory(c.ID); ok {
		t.Errorf("deleted category %q came back after refresh", c.ID)
	}

	// A stale remote copy that still lists it is ignored too.
	if err := remote.ReplaceCategories(ctx, []core.Category{c}); err != nil {
		t.Fatalf("seed remote: %v", err)
	}
	if added, err := refresher.RefreshOnce(ctx); err != nil || added != 0 {
		t.Errorf("expected nothing merged, got %d (err=%v)", added, err)
	}
}

func TestSyncProfile(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	remote := memory.New(nil)
	w := NewSyncWorker(store, remote)

	version := save(t, store, storage.ProfileStore, core.Profile{FullName: "Ada", ProfilePicture: "https://x/p.png"})
	if err := w.HandleStateChanged(ctx, amqp.NewStateChangedMessage(storage.ProfileStore, version)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got, _ := remote.ReadProfile(ctx)
	if got.FullName != "Ada" || got.ProfilePicture != "https://x/p.png" {
		t.Errorf("unexpected remote profile %+v", got)
	}
}

func TestStartupSync(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	remote := memory.New(nil)
	w := NewSyncWorker(store, remote)

	if err := w.StartupSync(ctx); err != nil {
		t.Fatalf("empty startup sync: %v", err)
	}

	if err := storage.SaveSnapshot(ctx, store, storage.Snapshot{
		Ledger:  storage.LedgerRecord{Budget: decimal.NewFromInt(50)},
		Profile: core.Profile{FullName: "Grace"},
	}); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	if err := w.StartupSync(ctx); err != nil {
		t.Fatalf("startup sync: %v", err)
	}
	if pending, _ := store.Pending(ctx); len(pending) != 0 {
		t.Errorf("expected every record synced, %d pending", len(pending))
	}
	rec, _ := remote.Ledger()
	if !rec.Budget.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected budget 50, got %s", rec.Budget)
	}
}

type countingMerger struct {
	mu    sync.Mutex
	calls int
	seen  int
}

func (m *countingMerger) MergeRemoteCategories(remote []core.Category) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.seen = len(remote)
	return len(remote)
}

func (m *countingMerger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCategoryRefresher_RefreshOnce(t *testing.T) {
	remote := memory.New([]core.Category{{ID: "r1", Name: "Garden"}})
	target := &countingMerger{}
	r := NewCategoryRefresher(remote, target, time.Hour)

	added, err := r.RefreshOnce(context.Background())
	if err != nil || added != 1 {
		t.Fatalf("expected 1 added, got %d (err=%v)", added, err)
	}

	remote.SetErr(errors.New("offline"))
	if _, err := r.RefreshOnce(context.Background()); err == nil {
		t.Error("expected error from remote")
	}
}

func TestCategoryRefresher_Lifecycle(t *testing.T) {
	remote := memory.New(nil)
	target := &countingMerger{}
	r := NewCategoryRefresher(remote, target, 10*time.Millisecond)
	ctx := context.Background()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("second start should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for target.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if target.count() < 2 {
		t.Errorf("expected periodic refreshes, got %d", target.count())
	}

	if err := r.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := r.Stop(ctx); err != nil {
		t.Errorf("stop twice: %v", err)
	}
}

type blockingMerger struct {
	entered chan struct{}
	release chan struct{}
}

func (m *blockingMerger) MergeRemoteCategories([]core.Category) int {
	select {
	case m.entered <- struct{}{}:
	default:
	}
	<-m.release
	return 0
}

func TestCategoryRefresher_StopAfterTimeout(t *testing.T) {
	target := &blockingMerger{entered: make(chan struct{}, 1), release: make(chan struct{})}
	r := NewCategoryRefresher(memory.New(nil), target, time.Hour)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-target.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Stop(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the stop to time out, got %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("second stop should be a no-op, got %v", err)
	}
	close(target.release)
}
