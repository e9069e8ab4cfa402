// Package batch implements batched bulk reconciliation: walk a paged source,
// stage a write for every item and flush the staged writes every fixed number
// of items so neither memory nor a single atomic write grows with the source.
package batch

import (
	"context"

	"github.com/pkg/errors"
)

// ErrInvalidSize is returned for batch sizes below one.
var ErrInvalidSize = errors.New("batch size must be positive")

// Cursor yields items a page at a time. An empty page ends the iteration.
type Cursor[T any] interface {
	Next(ctx context.Context) ([]T, error)
}

// ApplyFunc stages the work for a single item.
type ApplyFunc[T any] func(item T) error

// FlushFunc executes the staged work, processed is the number of items
// applied so far.
type FlushFunc func(ctx context.Context, processed int) error

// ForEachBatch applies fn to every item of src and calls flush after every
// size items and once more for a trailing partial batch. It returns the
// number of items applied.
func ForEachBatch[T any](ctx context.Context, src Cursor[T], size int, fn ApplyFunc[T], flush FlushFunc) (int, error) {
	if size <= 0 {
		return 0, ErrInvalidSize
	}

	processed := 0
	pending := 0

	for {
		page, err := src.Next(ctx)
		if err != nil {
			return processed, err
		}

		if len(page) == 0 {
			break
		}

		for _, item := range page {
			err := fn(item)
			if err != nil {
				return processed, err
			}

			processed++
			pending++

			if pending < size {
				continue
			}

			err = flush(ctx, processed)
			if err != nil {
				return processed, err
			}

			pending = 0

			if err := ctx.Err(); err != nil {
				return processed, err
			}
		}
	}

	if pending > 0 {
		err := flush(ctx, processed)
		if err != nil {
			return processed, err
		}
	}

	return processed, nil
}

// SliceCursor serves an in-memory slice in pages.
type SliceCursor[T any] struct {
	items []T
	page  int
}

func NewSliceCursor[T any](items []T, page int) *SliceCursor[T] {
	if page <= 0 {
		page = len(items)
	}

	return &SliceCursor[T]{items: items, page: page}
}

func (s *SliceCursor[T]) Next(context.Context) ([]T, error) {
	if len(s.items) == 0 {
		return nil, nil
	}

	n := s.page
	if n > len(s.items) {
		n = len(s.items)
	}

	page := s.items[:n]
	s.items = s.items[n:]
	return page, nil
}
