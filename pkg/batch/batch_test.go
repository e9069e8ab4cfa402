package batch_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/soapboxsocial/fanout/pkg/batch"
)

func ids(n int) []int {
	result := make([]int, n)
	for i := range result {
		result[i] = i + 1
	}

	return result
}

func TestForEachBatch(t *testing.T) {
	var tests = []struct {
		name     string
		items    int
		page     int
		size     int
		expected []int
	}{
		{"empty", 0, 10, 3, []int{}},
		{"exact", 6, 4, 3, []int{3, 6}},
		{"remainder", 7, 2, 3, []int{3, 6, 7}},
		{"single batch", 2, 10, 1000, []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied := make([]int, 0)
			flushes := make([]int, 0)

			n, err := batch.ForEachBatch[int](
				context.Background(),
				batch.NewSliceCursor(ids(tt.items), tt.page),
				tt.size,
				func(item int) error {
					applied = append(applied, item)
					return nil
				},
				func(_ context.Context, processed int) error {
					flushes = append(flushes, processed)
					return nil
				},
			)

			if err != nil {
				t.Fatal(err)
			}

			if n != tt.items {
				t.Fatalf("expected %d processed actual %d", tt.items, n)
			}

			if !reflect.DeepEqual(applied, ids(tt.items)) {
				t.Fatalf("unexpected applied %v", applied)
			}

			if !reflect.DeepEqual(flushes, tt.expected) {
				t.Fatalf("expected flushes %v actual %v", tt.expected, flushes)
			}
		})
	}
}

func TestForEachBatch_FlushError(t *testing.T) {
	expected := errors.New("boom")

	n, err := batch.ForEachBatch[int](
		context.Background(),
		batch.NewSliceCursor(ids(10), 5),
		2,
		func(int) error { return nil },
		func(_ context.Context, processed int) error {
			if processed == 4 {
				return expected
			}

			return nil
		},
	)

	if err != expected {
		t.Fatalf("unexpected err %v", err)
	}

	if n != 4 {
		t.Fatalf("expected 4 processed actual %d", n)
	}
}

func TestForEachBatch_InvalidSize(t *testing.T) {
	_, err := batch.ForEachBatch[int](
		context.Background(),
		batch.NewSliceCursor(ids(1), 1),
		0,
		func(int) error { return nil },
		func(context.Context, int) error { return nil },
	)

	if err != batch.ErrInvalidSize {
		t.Fatalf("unexpected err %v", err)
	}
}

func TestForEachBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	n, err := batch.ForEachBatch[int](
		ctx,
		batch.NewSliceCursor(ids(10), 10),
		2,
		func(int) error { return nil },
		func(context.Context, int) error {
			cancel()
			return nil
		},
	)

	if err != context.Canceled {
		t.Fatalf("unexpected err %v", err)
	}

	if n != 2 {
		t.Fatalf("expected 2 processed actual %d", n)
	}
}
