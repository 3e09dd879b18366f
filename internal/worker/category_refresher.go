package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pocket/internal/core"
	"pocket/internal/sheets"
)

// CategoryMerger accepts remote categories into the local registry.
type CategoryMerger interface {
	MergeRemoteCategories(remote []core.Category) int
}

// CategoryRefresher periodically pulls the remote categories and merges them
// into the local registry by id.
type CategoryRefresher struct {
	source   sheets.CategoryStore
	target   CategoryMerger
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewCategoryRefresher(source sheets.CategoryStore, target CategoryMerger, interval time.Duration) *CategoryRefresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CategoryRefresher{
		source:   source,
		target:   target,
		interval: interval,
	}
}

// RefreshOnce merges the current remote categories and returns how many
// were added locally.
func (r *CategoryRefresher) RefreshOnce(ctx context.Context) (int, error) {
	remote, err := r.source.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list remote categories: %w", err)
	}
	added := r.target.MergeRemoteCategories(remote)
	if added > 0 {
		slog.InfoContext(ctx, "Merged remote categories",
			"remote", len(remote),
			"added", added)
	}
	return added, nil
}

// Start refreshes once immediately and then every interval.
func (r *CategoryRefresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("category refresher is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go r.run(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Category refresher started", "interval", r.interval)
	return nil
}

// Stop halts the refresher and waits for an in-flight refresh. Calling it
// again, even after a timeout, is a no-op.
func (r *CategoryRefresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopCh)
	doneCh := r.doneCh
	r.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Category refresher stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Category refresher stop timed out")
		return ctx.Err()
	}
}

func (r *CategoryRefresher) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *CategoryRefresher) refresh(ctx context.Context) {
	if _, err := r.RefreshOnce(ctx); err != nil {
		slog.WarnContext(ctx, "Category refresh failed", "error", err)
	}
}
