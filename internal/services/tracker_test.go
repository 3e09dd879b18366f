package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocket/internal/category"
	"pocket/internal/core"
	"pocket/internal/ledger"
	"pocket/internal/storage"
)

type captureSink struct {
	mu      sync.Mutex
	records map[string][]byte
	writes  int
}

func newCaptureSink() *captureSink {
	return &captureSink{records: map[string][]byte{}}
}

func (s *captureSink) Enqueue(name string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[name] = payload
	s.writes++
}

func (s *captureSink) decode(t *testing.T, name string, v any) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.records[name]
	require.True(t, ok, "record %s was never written", name)
	require.NoError(t, storage.Decode(data, v))
}

type stubConfirmer struct{ err error }

func (c stubConfirmer) UpdateProfileField(context.Context, string, string) error { return c.err }

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestTracker(sink Sink) *Tracker {
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("x-%d", n)
	}
	return NewTracker(storage.Snapshot{}, TrackerOptions{
		Now:        func() time.Time { return testNow },
		Location:   time.UTC,
		NewID:      ids,
		Sink:       sink,
		Categories: []category.Option{category.WithIDGenerator(ids)},
	})
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTrackerExpenseCommandsPersistLedger(t *testing.T) {
	sink := newCaptureSink()
	tr := newTestTracker(sink)

	e, err := tr.AddExpense(core.ExpenseInput{CategoryID: "food", Amount: dec("10"), Title: "Pizza"})
	require.NoError(t, err)
	require.NoError(t, tr.SetBudget(dec("100")))

	var rec storage.LedgerRecord
	sink.decode(t, storage.LedgerStore, &rec)
	require.Len(t, rec.Expenses, 1)
	assert.Equal(t, e.ID, rec.Expenses[0].ID)
	assert.True(t, rec.Budget.Equal(dec("100")))
	assert.True(t, tr.Balance().Equal(dec("90")))

	writes := sink.writes
	_, err = tr.AddExpense(core.ExpenseInput{Amount: dec("-1"), Title: "bad"})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	assert.False(t, tr.DeleteExpense("missing"))
	ok, err := tr.EditExpense("missing", core.ExpenseUpdate{})
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, writes, sink.writes, "rejected commands must not persist")

	assert.True(t, tr.DeleteExpense(e.ID))
	sink.decode(t, storage.LedgerStore, &rec)
	assert.Empty(t, rec.Expenses)
}

func TestTrackerCategoriesPersistOnlyUserSet(t *testing.T) {
	sink := newCaptureSink()
	tr := newTestTracker(sink)

	c, ok := tr.AddCategory(core.Category{Name: "Books", Color: "#111"})
	require.True(t, ok)
	assert.Equal(t, "x-1", c.ID)
	assert.False(t, c.IsDefault)

	_, ok = tr.AddCategory(core.Category{Name: "books"})
	assert.False(t, ok)

	name := "Novels"
	assert.True(t, tr.EditCategory(c.ID, core.CategoryUpdate{Name: &name}))
	assert.False(t, tr.DeleteCategory("food"))

	var rec storage.CategoryRecord
	sink.decode(t, storage.CategoriesStore, &rec)
	require.Len(t, rec.UserCategories, 1)
	assert.Equal(t, "Novels", rec.UserCategories[0].Name)

	assert.Equal(t, 1, tr.MergeRemoteCategories([]core.Category{{ID: "r1", Name: "Garden"}, {ID: "r2", Name: "NOVELS"}}))
	sink.decode(t, storage.CategoriesStore, &rec)
	assert.Len(t, rec.UserCategories, 2)
}

func TestTrackerDeletedCategoryStaysDeleted(t *testing.T) {
	sink := newCaptureSink()
	tr := newTestTracker(sink)

	c, ok := tr.AddCategory(core.Category{Name: "Hobby"})
	require.True(t, ok)
	require.True(t, tr.DeleteCategory(c.ID))

	var rec storage.CategoryRecord
	sink.decode(t, storage.CategoriesStore, &rec)
	assert.Empty(t, rec.UserCategories)
	assert.Equal(t, []string{c.ID}, rec.DeletedIDs)

	reloaded := NewTracker(storage.Snapshot{Categories: rec}, TrackerOptions{Location: time.UTC})
	assert.Zero(t, reloaded.MergeRemoteCategories([]core.Category{c}))
	_, ok = reloaded.LookupCategory(c.ID)
	assert.False(t, ok)
	assert.Equal(t, []string{c.ID}, reloaded.Snapshot().Categories.DeletedIDs)
}

func TestTrackerDanglingCategory(t *testing.T) {
	tr := newTestTracker(nil)
	c, ok := tr.AddCategory(core.Category{Name: "Books"})
	require.True(t, ok)
	_, err := tr.AddExpense(core.ExpenseInput{CategoryID: c.ID, Amount: dec("5"), Title: "Zine"})
	require.NoError(t, err)
	_, err = tr.AddExpense(core.ExpenseInput{CategoryID: "food", Amount: dec("7"), Title: "Lunch"})
	require.NoError(t, err)

	require.True(t, tr.DeleteCategory(c.ID))

	assert.Len(t, tr.ListExpenses(), 2)
	breakdown := tr.Breakdown(nil)
	require.Len(t, breakdown, 1)
	assert.Equal(t, "food", breakdown[0].Category.ID)
	assert.Len(t, tr.RecentEnriched(10), 1)
	assert.Len(t, tr.Enrich(tr.ListExpenses()), 1)
}

func TestTrackerFilterHistory(t *testing.T) {
	tr := newTestTracker(nil)
	for _, in := range []core.ExpenseInput{
		{CategoryID: "food", Amount: dec("1"), Title: "jan", Date: core.On("2025-01-10")},
		{CategoryID: "rent", Amount: dec("1"), Title: "mar", Date: core.On("2025-03-10")},
		{CategoryID: "food", Amount: dec("1"), Title: "mar-food", Date: core.On("2025-03-11")},
	} {
		_, err := tr.AddExpense(in)
		require.NoError(t, err)
	}

	sel, err := tr.ApplyFilterMonth(2)
	require.NoError(t, err)
	require.NotNil(t, sel.Month)
	assert.Len(t, tr.History(), 2)

	tr.SetFilterCategory("food")
	assert.Len(t, tr.History(), 1)

	sel = tr.ApplyFilterRange(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC))
	assert.Nil(t, sel.Month)
	require.Len(t, tr.History(), 1)
	assert.Equal(t, "jan", tr.History()[0].Title)

	_, err = tr.ApplyFilterMonth(12)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	tr.ClearFilterCategory()
	assert.Nil(t, tr.FilterSelection().CategoryID)
	tr.ClearFilter()
	assert.Len(t, tr.History(), 3)
}

func TestTrackerProfileRollback(t *testing.T) {
	sink := newCaptureSink()
	tr := NewTracker(storage.Snapshot{Profile: core.Profile{FullName: "Ada"}}, TrackerOptions{
		Sink:      sink,
		Confirmer: stubConfirmer{err: errors.New("offline")},
	})

	err := tr.SetProfileName(context.Background(), "Grace")
	require.Error(t, err)
	assert.Equal(t, "Ada", tr.Profile().FullName)

	var rec storage.ProfileRecord
	sink.decode(t, storage.ProfileStore, &rec)
	assert.Equal(t, "Ada", rec.FullName, "the revert is persisted too")
}

// interleavingSink starts a concurrent picture update while the first
// profile write is in flight and records payloads as each write completes.
type interleavingSink struct {
	tr      *Tracker
	mu      sync.Mutex
	started bool
	last    []byte
	other   chan error
}

func (s *interleavingSink) Enqueue(name string, payload []byte) {
	if name != storage.ProfileStore {
		return
	}
	s.mu.Lock()
	first := !s.started
	s.started = true
	s.mu.Unlock()

	if first {
		go func() { s.other <- s.tr.SetProfilePicture(context.Background(), "https://x/new.png") }()
		// Give the picture update a chance to overtake this write.
		time.Sleep(50 * time.Millisecond)
	}

	s.mu.Lock()
	s.last = payload
	s.mu.Unlock()
}

func TestTrackerProfileWritesKeepOrder(t *testing.T) {
	sink := &interleavingSink{other: make(chan error, 1)}
	tr := NewTracker(storage.Snapshot{Profile: core.Profile{FullName: "Ada", ProfilePicture: "https://x/old.png"}}, TrackerOptions{Sink: sink})
	sink.tr = tr

	require.NoError(t, tr.SetProfileName(context.Background(), "Grace"))
	require.NoError(t, <-sink.other)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	var rec storage.ProfileRecord
	require.NoError(t, storage.Decode(sink.last, &rec))
	assert.Equal(t, core.Profile{FullName: "Grace", ProfilePicture: "https://x/new.png"}, rec)
}

func TestTrackerSummaryAndMatch(t *testing.T) {
	tr := newTestTracker(nil)
	require.NoError(t, tr.SetBudget(dec("200")))
	_, err := tr.AddExpense(core.ExpenseInput{CategoryID: "food", Amount: dec("50"), Title: "Coffee", PaymentMethod: "card"})
	require.NoError(t, err)
	_, err = tr.AddExpense(core.ExpenseInput{CategoryID: "food", Amount: dec("10"), Title: "Coffee", Date: core.On("2025-02-01")})
	require.NoError(t, err)

	s := tr.CurrentSummary()
	assert.Equal(t, time.March, s.Month)
	assert.True(t, s.Spend.Equal(dec("50")))
	assert.InDelta(t, 0.25, s.Progress, 1e-9)

	method := "card"
	assert.Len(t, tr.MatchExpenses(ledger.Criteria{PaymentMethod: &method}), 1)
	assert.Len(t, tr.ExpensesByCategory("food"), 2)
	assert.Len(t, tr.RecentTransactions(1), 1)
}

func TestTrackerReloadFromStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	w := NewStateWriter(store, nil, DefaultStateWriterConfig())
	require.NoError(t, w.Start(ctx))

	tr := newTestTracker(w)
	_, err := tr.AddExpense(core.ExpenseInput{CategoryID: "food", Amount: dec("3.5"), Title: "Tea", Date: core.On("2025-03-01")})
	require.NoError(t, err)
	_, ok := tr.AddCategory(core.Category{Name: "Books"})
	require.True(t, ok)
	require.NoError(t, w.Stop(ctx))

	again, err := LoadTracker(ctx, store, TrackerOptions{Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, again.ListExpenses(), 1)
	assert.Equal(t, tr.ListExpenses()[0].ID, again.ListExpenses()[0].ID)
	assert.Equal(t, tr.ListCategories(), again.ListCategories())
}

func TestTrackerConcurrentCommands(t *testing.T) {
	tr := newTestTracker(newCaptureSink())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.AddExpense(core.ExpenseInput{CategoryID: "food", Amount: dec("1"), Title: "x"})
			_ = tr.Balance()
		}()
	}
	wg.Wait()
	assert.Len(t, tr.ListExpenses(), 50)
}
