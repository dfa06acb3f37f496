// Package batch groups items into fixed-size batches before handing them to
// a processor, so bulk writes can share a transaction.
package batch

import (
	"context"
	"sync"
	"sync/atomic"
)

// ProcessFunc handles one batch. The slice is reused after the call returns
// and must not be retained.
type ProcessFunc[T any] func(ctx context.Context, items []T) error

// Batcher accumulates items and processes them in batches of a fixed size.
type Batcher[T any] struct {
	size      int
	processor ProcessFunc[T]
	items     []T
	mu        sync.Mutex

	flushes   atomic.Int64
	processed atomic.Int64
}

// Stats reports batcher activity.
type Stats struct {
	Flushes   int64
	Processed int64
	Pending   int
}

// New creates a batcher. A size below 1 is treated as 1.
func New[T any](size int, processor ProcessFunc[T]) *Batcher[T] {
	if size < 1 {
		size = 1
	}
	return &Batcher[T]{
		size:      size,
		processor: processor,
		items:     make([]T, 0, size),
	}
}

// Add adds an item to the batch. If the batch is full, it's processed.
func (b *Batcher[T]) Add(ctx context.Context, item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, item)
	if len(b.items) >= b.size {
		return b.flush(ctx)
	}
	return nil
}

// Flush processes any remaining items.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flush(ctx)
}

// Stats returns a snapshot of the counters.
func (b *Batcher[T]) Stats() Stats {
	b.mu.Lock()
	pending := len(b.items)
	b.mu.Unlock()
	return Stats{
		Flushes:   b.flushes.Load(),
		Processed: b.processed.Load(),
		Pending:   pending,
	}
}

func (b *Batcher[T]) flush(ctx context.Context) error {
	if len(b.items) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n := len(b.items)
	err := b.processor(ctx, b.items)
	b.items = b.items[:0]
	b.flushes.Add(1)
	if err == nil {
		b.processed.Add(int64(n))
	}
	return err
}
