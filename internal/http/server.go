package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pocket/internal/core"
	"pocket/internal/filter"
	"pocket/internal/ledger"
	applog "pocket/internal/log"
	"pocket/internal/middleware/ratelimit"
	"pocket/internal/middleware/security"
	"pocket/internal/middleware/trace"
	"pocket/internal/services"
)

// Tracker is the application service the handlers drive.
type Tracker interface {
	Location() *time.Location

	AddExpense(in core.ExpenseInput) (core.Expense, error)
	EditExpense(id string, u core.ExpenseUpdate) (bool, error)
	DeleteExpense(id string) bool
	GetExpense(id string) (core.Expense, bool)
	ListExpenses() []core.Expense
	RecentTransactions(n int) []core.Expense
	RecentEnriched(n int) []core.EnrichedExpense
	ExpensesByCategory(id string) []core.Expense
	ExpensesByDateRange(from, to time.Time) []core.Expense
	MatchExpenses(c ledger.Criteria) []core.Expense

	SetBudget(b decimal.Decimal) error
	Budget() decimal.Decimal
	Balance() decimal.Decimal
	Summary(year int, month time.Month) core.MonthSummary
	Breakdown(expenses []core.Expense) []core.CategoryTotal
	GroupByCategory(expenses []core.Expense) []core.CategoryGroup
	Enrich(expenses []core.Expense) []core.EnrichedExpense

	AddCategory(c core.Category) (core.Category, bool)
	EditCategory(id string, u core.CategoryUpdate) bool
	DeleteCategory(id string) bool
	ListCategories() []core.Category
	LookupCategory(id string) (core.Category, bool)

	SetFilterCategory(id string) filter.Selection
	ClearFilterCategory() filter.Selection
	ApplyFilterMonth(m int) (filter.Selection, error)
	ApplyFilterRange(start, end time.Time) filter.Selection
	ClearFilter() filter.Selection
	FilterSelection() filter.Selection
	History() []core.Expense

	Profile() core.Profile
	SetProfileName(ctx context.Context, name string) error
	SetProfilePicture(ctx context.Context, url string) error
}

var _ Tracker = (*services.Tracker)(nil)

// Options configures the server's middleware.
type Options struct {
	Logger     *applog.Logger
	RateLimit  ratelimit.Config
	Headers    security.HeadersConfig
	IPResolver *security.IPResolver
	// Ready backs /readyz. Nil means always ready.
	Ready func(context.Context) error
	// Now is the clock used to default month parameters.
	Now func() time.Time
}

// DefaultOptions returns the options used by cmd/pocket.
func DefaultOptions() Options {
	return Options{
		Logger:     applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP),
		RateLimit:  ratelimit.DefaultConfig(),
		Headers:    security.DefaultHeadersConfig(),
		IPResolver: security.NewIPResolver(),
		Now:        time.Now,
	}
}

type Server struct {
	http.Server
	tracker Tracker
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	ready   func(context.Context) error
	now     func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// Zero-valued options fall back to DefaultOptions.
func NewServer(addr string, tracker Tracker, opts Options) *Server {
	def := DefaultOptions()
	if opts.Logger == nil {
		opts.Logger = def.Logger
	}
	if opts.RateLimit.RequestsPerMinute <= 0 {
		opts.RateLimit = def.RateLimit
	}
	if opts.Headers == (security.HeadersConfig{}) {
		opts.Headers = def.Headers
	}
	if opts.IPResolver == nil {
		opts.IPResolver = def.IPResolver
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}

	s := &Server{
		tracker: tracker,
		limiter: ratelimit.NewLimiter(opts.RateLimit),
		tracer:  trace.NewMiddleware(opts.IPResolver.ClientIP),
		ready:   opts.Ready,
		now:     opts.Now,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(opts.IPResolver.ClientIP)(handler)
	handler = security.Headers(opts.Headers)(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(opts.Logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses/recent", s.handleRecentExpenses)
	mux.HandleFunc("GET /api/expenses/export.csv", s.handleExportExpenses)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PATCH /api/expenses/{id}", s.handleEditExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/budget", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budget", s.handleSetBudget)
	mux.HandleFunc("GET /api/balance", s.handleBalance)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories/breakdown", s.handleCategoryBreakdown)
	mux.HandleFunc("PATCH /api/categories/{id}", s.handleEditCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/filter", s.handleGetFilter)
	mux.HandleFunc("DELETE /api/filter", s.handleClearFilter)
	mux.HandleFunc("PUT /api/filter/category", s.handleSetFilterCategory)
	mux.HandleFunc("DELETE /api/filter/category", s.handleClearFilterCategory)
	mux.HandleFunc("PUT /api/filter/month", s.handleSetFilterMonth)
	mux.HandleFunc("PUT /api/filter/range", s.handleSetFilterRange)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile/name", s.handleSetProfileName)
	mux.HandleFunc("PUT /api/profile/picture", s.handleSetProfilePicture)
}

// Metrics returns the request counters kept by the tracing middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// RateLimited is the number of writes rejected by the rate limiter.
func (s *Server) RateLimited() int64 {
	return s.limiter.Rejected()
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
