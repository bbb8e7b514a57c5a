package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrEmptyAnchor is returned when a row would leave the anchor column blank;
// such a row would be overwritten by the next append.
var ErrEmptyAnchor = errors.New("ledger: anchor cell is empty")

// ErrNoHeaders is returned when the ledger has no booking header row.
var ErrNoHeaders = errors.New("ledger: booking headers missing")

// AppendLockKey names the lock that serializes appends across processes.
const AppendLockKey = "lock:ledger_append"

// Locker grants exclusive access to a named key until unlock is called.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Writer appends booking rows. Rows are placed in the first row (from the
// one after the header) whose anchor cell is empty, not after the sheet's
// last used row, so pricing rows never push bookings down.
type Writer struct {
	sheet  Sheet
	layout Layout
	lock   Locker

	mu sync.Mutex
}

// WriterOption customizes a Writer.
type WriterOption func(*Writer)

// WithAppendLock makes every append hold AppendLockKey on lk between
// choosing the row and writing it. Writers in different processes sharing
// one ledger need a shared lk or they can pick the same empty row.
func WithAppendLock(lk Locker) WriterOption { return func(w *Writer) { w.lock = lk } }

// NewWriter returns a Writer over sh.
func NewWriter(sh Sheet, l Layout, opts ...WriterOption) *Writer {
	w := &Writer{sheet: sh, layout: l}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Append writes values starting at column A and returns the row used.
func (w *Writer) Append(ctx context.Context, values []string) (int, error) {
	anchor := w.layout.AnchorCol - 1
	if anchor >= len(values) || strings.TrimSpace(values[anchor]) == "" {
		return 0, ErrEmptyAnchor
	}
	if len(values) >= w.layout.PricingCol {
		values = values[:w.layout.PricingCol-1]
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.lock != nil {
		unlock, err := w.lock.Lock(ctx, AppendLockKey)
		if err != nil {
			return 0, fmt.Errorf("ledger: append lock: %w", err)
		}
		defer unlock()
	}

	row, err := w.nextRow(ctx)
	if err != nil {
		return 0, err
	}
	if err := w.sheet.WriteRow(ctx, row, 1, values); err != nil {
		return 0, err
	}
	return row, nil
}

// nextRow returns the first row at or below HeaderRow+1 whose anchor cell
// is empty.
func (w *Writer) nextRow(ctx context.Context) (int, error) {
	first := w.layout.HeaderRow + 1
	last, err := w.sheet.LastRow(ctx)
	if err != nil {
		return 0, err
	}
	if last < first {
		return first, nil
	}
	col, err := w.sheet.ColumnValues(ctx, w.layout.AnchorCol, first, last-first+1)
	if err != nil {
		return 0, err
	}
	for i, v := range col {
		if strings.TrimSpace(v) == "" {
			return first + i, nil
		}
	}
	return last + 1, nil
}
