// Package optimistic applies a local change immediately and reverts it if a
// remote confirmation fails.
package optimistic

import (
	"context"
	"fmt"
	"sync"
)

// Field holds a value whose writes are confirmed remotely after being shown
// locally. It is safe for concurrent use.
type Field[T any] struct {
	name string

	mu    sync.Mutex
	value T
	gen   uint64
}

// NewField returns a field named name holding initial.
func NewField[T any](name string, initial T) *Field[T] {
	return &Field[T]{name: name, value: initial}
}

func (f *Field[T]) Get() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Set replaces the value without remote confirmation, e.g. when restoring
// persisted state.
func (f *Field[T]) Set(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = v
	f.gen++
}

// Update sets next, then calls confirm outside the lock. If confirm fails the
// previous value is restored unless another write landed in the meantime,
// and the confirm error is returned wrapped. onChange, if set, observes every
// value the field takes, including the revert.
func (f *Field[T]) Update(ctx context.Context, next T, confirm func(context.Context, T) error, onChange func(T)) error {
	f.mu.Lock()
	prev := f.value
	f.value = next
	f.gen++
	gen := f.gen
	f.mu.Unlock()
	if onChange != nil {
		onChange(next)
	}

	err := confirm(ctx, next)
	if err == nil {
		return nil
	}

	f.mu.Lock()
	reverted := f.gen == gen
	if reverted {
		f.value = prev
		f.gen++
	}
	f.mu.Unlock()
	if reverted && onChange != nil {
		onChange(prev)
	}
	return fmt.Errorf("confirm %s: %w", f.name, err)
}
