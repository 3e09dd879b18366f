// Package memory is an in-process stand-in for the remote spreadsheet, used
// when no spreadsheet is configured and in tests.
package memory

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"

	"pocket/internal/core"
	ports "pocket/internal/sheets"
	"pocket/internal/storage"
)

type Store struct {
	mu         sync.Mutex
	ledger     storage.LedgerRecord
	categories []core.Category
	profile    core.Profile
	uploads    int
	// Err, when set, is returned by every call.
	Err error
}

var _ ports.Remote = (*Store)(nil)

func New(categories []core.Category) *Store {
	return &Store{categories: append([]core.Category(nil), categories...)}
}

// NewFromFile seeds remote categories from a text file with one
// "id,name,color" entry per line. Blank lines and # comments are skipped.
// A missing file yields an empty store.
func NewFromFile(path string) *Store {
	return New(readCategories(path))
}

func (s *Store) ReplaceLedger(_ context.Context, rec storage.LedgerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.ledger = storage.LedgerRecord{
		Expenses: append([]core.Expense(nil), rec.Expenses...),
		Budget:   rec.Budget,
	}
	s.uploads++
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]core.Category(nil), s.categories...), nil
}

func (s *Store) ReplaceCategories(_ context.Context, cats []core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.categories = append([]core.Category(nil), cats...)
	return nil
}

func (s *Store) ReadProfile(_ context.Context) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return core.Profile{}, s.Err
	}
	return s.profile, nil
}

func (s *Store) UpdateProfileField(_ context.Context, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	switch field {
	case "fullName":
		s.profile.FullName = value
	case "profilePicture":
		s.profile.ProfilePicture = value
	}
	return nil
}

// SetErr changes the error returned by every call.
func (s *Store) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

// Ledger returns the last uploaded ledger and how many uploads happened.
func (s *Store) Ledger() (storage.LedgerRecord, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger, s.uploads
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []core.Category
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		if _, dup := seen[parts[0]]; dup {
			continue
		}
		seen[parts[0]] = struct{}{}
		c := core.Category{ID: parts[0], Name: parts[1]}
		if len(parts) > 2 {
			c.Color = parts[2]
		}
		out = append(out, c)
	}
	return out
}
