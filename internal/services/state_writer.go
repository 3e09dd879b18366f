package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pocket/internal/storage"
)

// Publisher announces that a stored record changed.
type Publisher interface {
	PublishStateChanged(ctx context.Context, store string, version int64) error
}

// StateWriterConfig holds configuration for the state writer.
type StateWriterConfig struct {
	// WriteTimeout bounds a single save plus its notification (default: 10s).
	WriteTimeout time.Duration
}

func DefaultStateWriterConfig() StateWriterConfig {
	return StateWriterConfig{WriteTimeout: 10 * time.Second}
}

// StateWriter persists records in the background. Enqueue never blocks; if a
// record is enqueued again before it is written, only the latest payload is
// saved. Failures are logged and the in-memory state is left as is.
type StateWriter struct {
	store     storage.Store
	publisher Publisher
	config    StateWriterConfig

	mu      sync.Mutex
	pending map[string][]byte
	order   []string
	running bool
	wake    chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewStateWriter creates a writer. publisher may be nil.
func NewStateWriter(store storage.Store, publisher Publisher, config StateWriterConfig) *StateWriter {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultStateWriterConfig().WriteTimeout
	}
	return &StateWriter{
		store:     store,
		publisher: publisher,
		config:    config,
		pending:   make(map[string][]byte),
		wake:      make(chan struct{}, 1),
	}
}

// Enqueue schedules payload to be written under name.
func (w *StateWriter) Enqueue(name string, payload []byte) {
	w.mu.Lock()
	if _, queued := w.pending[name]; !queued {
		w.order = append(w.order, name)
	}
	w.pending[name] = payload
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start begins the write loop. Returns an error if already running.
func (w *StateWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("state writer is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(context.WithoutCancel(ctx), stopCh, doneCh)

	slog.InfoContext(ctx, "State writer started")
	return nil
}

// Stop writes whatever is still pending and stops the loop. If ctx ends
// first the loop keeps draining in the background and later calls return nil.
func (w *StateWriter) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "State writer stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "State writer stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the write loop is running.
func (w *StateWriter) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Pending reports how many records are waiting to be written.
func (w *StateWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *StateWriter) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-stopCh:
			w.flush(ctx)
			return
		case <-w.wake:
			w.flush(ctx)
		}
	}
}

// flush writes every pending record in first-enqueued order.
func (w *StateWriter) flush(ctx context.Context) {
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			w.mu.Unlock()
			return
		}
		name := w.order[0]
		w.order = w.order[1:]
		payload := w.pending[name]
		delete(w.pending, name)
		w.mu.Unlock()

		w.write(ctx, name, payload)
	}
}

func (w *StateWriter) write(ctx context.Context, name string, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, w.config.WriteTimeout)
	defer cancel()

	version, err := w.store.Save(ctx, name, payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to persist record", "store", name, "error", err)
		return
	}

	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishStateChanged(ctx, name, version); err != nil {
		// The record stays pending in storage and is picked up by the
		// worker's startup sync.
		slog.WarnContext(ctx, "Failed to publish state change",
			"store", name,
			"version", version,
			"error", err)
	}
}
