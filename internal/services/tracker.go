package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pocket/internal/category"
	"pocket/internal/core"
	"pocket/internal/filter"
	"pocket/internal/ledger"
	"pocket/internal/profile"
	"pocket/internal/query"
	"pocket/internal/storage"
)

// Sink receives encoded records after every mutation.
type Sink interface {
	Enqueue(name string, payload []byte)
}

// TrackerOptions configures a Tracker. Zero values pick the defaults.
type TrackerOptions struct {
	Now        func() time.Time
	Location   *time.Location
	NewID      func() string
	Sink       Sink
	Confirmer  profile.Confirmer
	Categories []category.Option
}

// Tracker owns the ledger, category registry, filter session and profile for
// one user, and serializes every command and query behind a single lock.
// Commands return once memory is updated; persistence is handed to the Sink.
type Tracker struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	registry *category.Registry
	engine   *query.Engine
	filter   *filter.Session

	// profileMu orders profile snapshots with their enqueue.
	profileMu sync.Mutex
	profile   *profile.Profile
	sink      Sink
	location  *time.Location
}

// NewTracker restores a tracker from snap.
func NewTracker(snap storage.Snapshot, opts TrackerOptions) *Tracker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	ledgerOpts := []ledger.Option{ledger.WithClock(opts.Now), ledger.WithLocation(opts.Location)}
	if opts.NewID != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithIDGenerator(opts.NewID))
	}
	l := ledger.New(snap.Ledger.Expenses, snap.Ledger.Budget, ledgerOpts...)
	catOpts := append([]category.Option{category.WithDeleted(snap.Categories.DeletedIDs)}, opts.Categories...)
	r := category.New(snap.Categories.UserCategories, catOpts...)

	return &Tracker{
		ledger:   l,
		registry: r,
		engine:   query.New(l, r, opts.Location),
		filter:   filter.New(opts.Location),
		profile:  profile.New(snap.Profile, opts.Confirmer),
		sink:     opts.Sink,
		location: opts.Location,
	}
}

// LoadTracker reads the stored records and builds a tracker from them.
func LoadTracker(ctx context.Context, store storage.Store, opts TrackerOptions) (*Tracker, error) {
	snap, err := storage.LoadSnapshot(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	slog.InfoContext(ctx, "State loaded",
		"expenses", len(snap.Ledger.Expenses),
		"user_categories", len(snap.Categories.UserCategories))
	return NewTracker(snap, opts), nil
}

// Location is the calendar used for month and day boundaries.
func (t *Tracker) Location() *time.Location {
	return t.location
}

// ---- expense commands

func (t *Tracker) AddExpense(in core.ExpenseInput) (core.Expense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, err := t.ledger.Add(in)
	if err != nil {
		return core.Expense{}, err
	}
	t.persistLedger()
	return e, nil
}

// EditExpense reports false when id does not exist.
func (t *Tracker) EditExpense(id string, u core.ExpenseUpdate) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ok, err := t.ledger.Edit(id, u)
	if ok {
		t.persistLedger()
	}
	return ok, err
}

func (t *Tracker) DeleteExpense(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	ok := t.ledger.Delete(id)
	if ok {
		t.persistLedger()
	}
	return ok
}

func (t *Tracker) SetBudget(b decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ledger.SetBudget(b); err != nil {
		return err
	}
	t.persistLedger()
	return nil
}

// ---- expense queries

func (t *Tracker) ListExpenses() []core.Expense {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.List()
}

func (t *Tracker) GetExpense(id string) (core.Expense, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Get(id)
}

func (t *Tracker) RecentTransactions(n int) []core.Expense {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Recent(n)
}

// RecentEnriched is RecentTransactions with categories resolved; expenses
// whose category is gone are left out.
func (t *Tracker) RecentEnriched(n int) []core.EnrichedExpense {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Recent(n)
}

func (t *Tracker) ExpensesByCategory(id string) []core.Expense {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.ByCategory(id)
}

func (t *Tracker) ExpensesByDateRange(from, to time.Time) []core.Expense {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.ByDateRange(from, to)
}

func (t *Tracker) MatchExpenses(c ledger.Criteria) []core.Expense {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Match(c)
}

func (t *Tracker) Budget() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Budget()
}

func (t *Tracker) Balance() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Balance()
}

func (t *Tracker) Summary(year int, month time.Month) core.MonthSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Summary(year, month)
}

// CurrentSummary is Summary for the month the clock is in.
func (t *Tracker) CurrentSummary() core.MonthSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.ledger.Now().In(t.location)
	return t.engine.Summary(now.Year(), now.Month())
}

// Breakdown totals the given expenses per category. A nil slice means every
// expense in the ledger.
func (t *Tracker) Breakdown(expenses []core.Expense) []core.CategoryTotal {
	t.mu.Lock()
	defer t.mu.Unlock()
	if expenses == nil {
		expenses = t.ledger.List()
	}
	return t.engine.Totals(expenses)
}

func (t *Tracker) GroupByCategory(expenses []core.Expense) []core.CategoryGroup {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.GroupByCategory(expenses)
}

func (t *Tracker) Enrich(expenses []core.Expense) []core.EnrichedExpense {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Enrich(expenses)
}

// ---- categories

// AddCategory returns the stored category, with its assigned id, or false if
// the registry rejected it.
func (t *Tracker) AddCategory(c core.Category) (core.Category, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.registry.Add(c) {
		return core.Category{}, false
	}
	user := t.registry.User()
	t.persistCategories()
	return user[len(user)-1], true
}

func (t *Tracker) EditCategory(id string, u core.CategoryUpdate) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	ok := t.registry.Edit(id, u)
	if ok {
		t.persistCategories()
	}
	return ok
}

func (t *Tracker) DeleteCategory(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	ok := t.registry.Delete(id)
	if ok {
		t.persistCategories()
	}
	return ok
}

func (t *Tracker) ListCategories() []core.Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registry.List()
}

func (t *Tracker) UserCategories() []core.Category {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registry.User()
}

func (t *Tracker) LookupCategory(id string) (core.Category, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registry.Lookup(id)
}

// MergeRemoteCategories unions remote categories into the user set and
// returns how many were added.
func (t *Tracker) MergeRemoteCategories(remote []core.Category) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	added := t.registry.MergeRemote(remote)
	if added > 0 {
		t.persistCategories()
	}
	return added
}

// ---- filter session

func (t *Tracker) SetFilterCategory(id string) filter.Selection {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter.SetCategory(id)
	return t.filter.Selection()
}

func (t *Tracker) ClearFilterCategory() filter.Selection {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter.ClearCategory()
	return t.filter.Selection()
}

func (t *Tracker) ApplyFilterMonth(m int) (filter.Selection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.filter.ApplyMonth(m)
	return t.filter.Selection(), err
}

func (t *Tracker) ApplyFilterRange(start, end time.Time) filter.Selection {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter.ApplyRange(start, end)
	return t.filter.Selection()
}

func (t *Tracker) ClearFilter() filter.Selection {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter.Clear()
	return t.filter.Selection()
}

func (t *Tracker) FilterSelection() filter.Selection {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filter.Selection()
}

// History applies the filter session to the current ledger.
func (t *Tracker) History() []core.Expense {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filter.Apply(t.ledger.List())
}

// ---- profile

func (t *Tracker) Profile() core.Profile {
	return t.profile.State()
}

// SetProfileName shows name immediately and confirms it remotely. On failure
// the previous name is restored and the error returned.
func (t *Tracker) SetProfileName(ctx context.Context, name string) error {
	return t.profile.SetFullName(ctx, name, t.profileChanged)
}

// SetProfilePicture is SetProfileName for the picture URL.
func (t *Tracker) SetProfilePicture(ctx context.Context, url string) error {
	return t.profile.SetPicture(ctx, url, t.profileChanged)
}

// ---- snapshots

// Snapshot returns every persisted record as of now.
func (t *Tracker) Snapshot() storage.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return storage.Snapshot{
		Ledger:     t.ledgerRecord(),
		Categories: t.categoryRecord(),
		Profile:    t.profile.State(),
	}
}

// PersistAll hands every record to the sink.
func (t *Tracker) PersistAll() {
	t.mu.Lock()
	t.persistLedger()
	t.persistCategories()
	t.mu.Unlock()
	t.persistProfile()
}

func (t *Tracker) ledgerRecord() storage.LedgerRecord {
	return storage.LedgerRecord{Expenses: t.ledger.List(), Budget: t.ledger.Budget()}
}

// persist* must be called with t.mu held, except persistProfile.
func (t *Tracker) persistLedger() {
	t.enqueue(storage.LedgerStore, t.ledgerRecord())
}

func (t *Tracker) persistCategories() {
	t.enqueue(storage.CategoriesStore, t.categoryRecord())
}

func (t *Tracker) categoryRecord() storage.CategoryRecord {
	return storage.CategoryRecord{UserCategories: t.registry.User(), DeletedIDs: t.registry.Deleted()}
}

func (t *Tracker) profileChanged(core.Profile) {
	t.persistProfile()
}

// persistProfile snapshots the profile under profileMu, so a later enqueue
// never carries an older state.
func (t *Tracker) persistProfile() {
	t.profileMu.Lock()
	defer t.profileMu.Unlock()
	t.enqueue(storage.ProfileStore, t.profile.State())
}

func (t *Tracker) enqueue(name string, v any) {
	if t.sink == nil {
		return
	}
	payload, err := storage.Encode(v)
	if err != nil {
		slog.Error("Failed to encode record", "store", name, "error", err)
		return
	}
	t.sink.Enqueue(name, payload)
}
