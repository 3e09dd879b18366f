package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"pocket/internal/cache"
	"pocket/internal/core"
	ports "pocket/internal/sheets"
	"pocket/internal/storage"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const categoriesCacheKey = "categories"

// Options names the spreadsheet and its tabs.
type Options struct {
	SpreadsheetID   string
	ExpensesSheet   string
	CategoriesSheet string
	ProfileSheet    string
	// CategoryTTL bounds how long ListCategories serves a cached read.
	CategoryTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.ExpensesSheet == "" {
		o.ExpensesSheet = "Expenses"
	}
	if o.CategoriesSheet == "" {
		o.CategoriesSheet = "Categories"
	}
	if o.ProfileSheet == "" {
		o.ProfileSheet = "Profile"
	}
	if o.CategoryTTL <= 0 {
		o.CategoryTTL = time.Minute
	}
	return o
}

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	expensesSheet   string
	categoriesSheet string
	profileSheet    string
	categories      *cache.LRUCache[[]core.Category]
}

var _ ports.Remote = (*Client)(nil)

// New creates a Sheets client. clientOpts are passed to the Sheets service
// and carry credentials or, in tests, an endpoint override.
func New(ctx context.Context, opts Options, clientOpts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	opts = opts.withDefaults()

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:             svc,
		spreadsheetID:   opts.SpreadsheetID,
		expensesSheet:   opts.ExpensesSheet,
		categoriesSheet: opts.CategoriesSheet,
		profileSheet:    opts.ProfileSheet,
		categories:      cache.NewLRUCache[[]core.Category](1, opts.CategoryTTL),
	}, nil
}

// CategoryCache exposes the remote category cache so its expired entries can
// be swept by a cache.Manager.
func (c *Client) CategoryCache() cache.Cleaner {
	return c.categories
}

// NewWithServiceAccount creates a client authenticated with service account
// credentials given inline or as a file path. Inline JSON wins.
func NewWithServiceAccount(ctx context.Context, opts Options, credentialsJSON, credentialsFile string) (*Client, error) {
	creds, err := loadCredentials(ctx, credentialsJSON, credentialsFile)
	if err != nil {
		return nil, err
	}
	return New(ctx, opts,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func loadCredentials(ctx context.Context, inline, file string) ([]byte, error) {
	inline, file = strings.TrimSpace(inline), strings.TrimSpace(file)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ReplaceLedger rewrites the expenses tab with rec and stores the budget in
// the profile tab.
func (c *Client) ReplaceLedger(ctx context.Context, rec storage.LedgerRecord) error {
	if err := c.replace(ctx, c.expensesSheet, "A:G", expenseRows(rec.Expenses)); err != nil {
		return err
	}
	if err := c.setKey(ctx, BudgetKey, rec.Budget.String()); err != nil {
		return fmt.Errorf("write budget: %w", err)
	}
	slog.InfoContext(ctx, "Ledger uploaded to sheet",
		"sheet", c.expensesSheet,
		"expenses", len(rec.Expenses))
	return nil
}

// ListCategories returns the remote user categories. Reads are cached.
func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	if cats, ok := c.categories.Get(categoriesCacheKey); ok {
		return append([]core.Category(nil), cats...), nil
	}
	values, err := c.read(ctx, c.categoriesSheet, "A:D")
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	cats := parseCategoryRows(values)
	c.categories.Set(categoriesCacheKey, cats)
	return append([]core.Category(nil), cats...), nil
}

// ReplaceCategories rewrites the categories tab.
func (c *Client) ReplaceCategories(ctx context.Context, cats []core.Category) error {
	c.categories.Delete(categoriesCacheKey)
	if err := c.replace(ctx, c.categoriesSheet, "A:D", categoryRows(cats)); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Categories uploaded to sheet",
		"sheet", c.categoriesSheet,
		"categories", len(cats))
	return nil
}

func (c *Client) ReadProfile(ctx context.Context) (core.Profile, error) {
	values, err := c.read(ctx, c.profileSheet, "A:B")
	if err != nil {
		return core.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return profileFromRows(values), nil
}

func (c *Client) UpdateProfileField(ctx context.Context, field, value string) error {
	if err := c.setKey(ctx, field, value); err != nil {
		return fmt.Errorf("update profile %s: %w", field, err)
	}
	return nil
}

func (c *Client) read(ctx context.Context, sheet, cols string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) replace(ctx context.Context, sheet, cols string, rows [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	start := fmt.Sprintf("%s!A1", sheet)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, start, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", start, err)
	}
	return nil
}

// setKey writes value next to key in the profile tab, adding the row if the
// key is not there yet.
func (c *Client) setKey(ctx context.Context, key, value string) error {
	values, err := c.read(ctx, c.profileSheet, "A:B")
	if err != nil {
		return err
	}
	_, rowOf := parseProfileRows(values)

	if row, ok := rowOf[strings.ToLower(key)]; ok {
		rng := fmt.Sprintf("%s!B%d", c.profileSheet, row)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{{value}}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write %s: %w", rng, err)
		}
		return nil
	}

	rows := [][]any{{key, value}}
	if len(values) == 0 {
		rows = [][]any{profileHeader, {key, value}}
	}
	rng := fmt.Sprintf("%s!A:B", c.profileSheet)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	return nil
}
