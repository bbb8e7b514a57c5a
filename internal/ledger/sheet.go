// Package ledger implements the booking ledger on top of a spreadsheet-like
// grid of cells.
//
// The ledger is one sheet with a header row. Booking records occupy the
// columns from A up to (but excluding) the pricing anchor column; a fixed
// seven-row Pricing Table lives in two later columns of the same rows. Rows
// and columns are 1-based, like a spreadsheet. Headers are data-defined: the
// engine locates columns by matching header names, never by fixed position.
//
// This package holds the pure ledger logic (scanning, record mapping,
// appending, pricing). Durable storage lives behind the Sheet interface
// (see repo.GormSheet); MemorySheet is the in-process implementation used in
// tests and local development.
package ledger

import (
	"context"
	"sort"
	"sync"
)

// Sheet is the tabular store backing the ledger. Missing cells read as "".
type Sheet interface {
	// Values returns the used data range: rows 1..LastRow, each padded to the
	// widest used column.
	Values(ctx context.Context) ([][]string, error)
	// Row returns one row padded to the widest used column.
	Row(ctx context.Context, row int) ([]string, error)
	// ColumnValues returns n cells of col starting at fromRow.
	ColumnValues(ctx context.Context, col, fromRow, n int) ([]string, error)
	// LastRow returns the highest row holding a non-empty cell (0 when empty).
	LastRow(ctx context.Context) (int, error)
	// WriteRow writes values into row starting at col.
	WriteRow(ctx context.Context, row, col int, values []string) error
	// WriteCell overwrites a single cell.
	WriteCell(ctx context.Context, row, col int, value string) error
}

type cell struct{ row, col int }

// MemorySheet is a concurrency-safe in-memory Sheet.
type MemorySheet struct {
	mu    sync.RWMutex
	cells map[cell]string
}

// NewMemorySheet returns a MemorySheet seeded with rows starting at row 1.
func NewMemorySheet(rows ...[]string) *MemorySheet {
	s := &MemorySheet{cells: make(map[cell]string)}
	for i, r := range rows {
		for j, v := range r {
			if v != "" {
				s.cells[cell{i + 1, j + 1}] = v
			}
		}
	}
	return s
}

func (s *MemorySheet) bounds() (maxRow, maxCol int) {
	for c := range s.cells {
		if c.row > maxRow {
			maxRow = c.row
		}
		if c.col > maxCol {
			maxCol = c.col
		}
	}
	return
}

// Values implements Sheet.
func (s *MemorySheet) Values(_ context.Context) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	maxRow, maxCol := s.bounds()
	out := make([][]string, maxRow)
	for r := 1; r <= maxRow; r++ {
		out[r-1] = s.row(r, maxCol)
	}
	return out, nil
}

// Row implements Sheet.
func (s *MemorySheet) Row(_ context.Context, row int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, maxCol := s.bounds()
	return s.row(row, maxCol), nil
}

func (s *MemorySheet) row(r, width int) []string {
	out := make([]string, width)
	for c := 1; c <= width; c++ {
		out[c-1] = s.cells[cell{r, c}]
	}
	return out
}

// ColumnValues implements Sheet.
func (s *MemorySheet) ColumnValues(_ context.Context, col, fromRow, n int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = s.cells[cell{fromRow + i, col}]
	}
	return out, nil
}

// LastRow implements Sheet.
func (s *MemorySheet) LastRow(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, _ := s.bounds()
	return r, nil
}

// WriteRow implements Sheet.
func (s *MemorySheet) WriteRow(_ context.Context, row, col int, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range values {
		s.set(cell{row, col + i}, v)
	}
	return nil
}

// WriteCell implements Sheet.
func (s *MemorySheet) WriteCell(_ context.Context, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(cell{row, col}, value)
	return nil
}

func (s *MemorySheet) set(c cell, v string) {
	if v == "" {
		delete(s.cells, c)
		return
	}
	s.cells[c] = v
}

// Dump returns the non-empty cell values in row-major order.
func (s *MemorySheet) Dump() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]cell, 0, len(s.cells))
	for c := range s.cells {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].row != keys[j].row {
			return keys[i].row < keys[j].row
		}
		return keys[i].col < keys[j].col
	})
	out := make([]string, len(keys))
	for i, c := range keys {
		out[i] = s.cells[c]
	}
	return out
}
