package repo

import (
	"context"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-turf-booking/internal/domain"
	"github.com/tbourn/go-turf-booking/internal/ledger"
)

func newSheet(t *testing.T) *GormSheet {
	t.Helper()
	return NewGormSheet(newTestDB(t, &domain.LedgerCell{}), "bookings")
}

func TestGormSheet_WriteAndRead(t *testing.T) {
	ctx := context.Background()
	s := newSheet(t)

	if err := s.WriteRow(ctx, 1, 1, []string{"Date", "Slots", "Name"}); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if err := s.WriteRow(ctx, 3, 2, []string{"09 AM - 10 AM", "", "x"}); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}

	last, err := s.LastRow(ctx)
	if err != nil || last != 3 {
		t.Fatalf("LastRow = %d, %v; want 3", last, err)
	}

	vals, err := s.Values(ctx)
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	want := [][]string{
		{"Date", "Slots", "Name", ""},
		{"", "", "", ""},
		{"", "09 AM - 10 AM", "", "x"},
	}
	if !reflect.DeepEqual(vals, want) {
		t.Fatalf("Values = %#v; want %#v", vals, want)
	}

	row, err := s.Row(ctx, 1)
	if err != nil || !reflect.DeepEqual(row, []string{"Date", "Slots", "Name", ""}) {
		t.Fatalf("Row(1) = %#v, %v", row, err)
	}

	col, err := s.ColumnValues(ctx, 2, 2, 3)
	if err != nil || !reflect.DeepEqual(col, []string{"", "09 AM - 10 AM", ""}) {
		t.Fatalf("ColumnValues = %#v, %v", col, err)
	}
}

func TestGormSheet_OverwriteAndClear(t *testing.T) {
	ctx := context.Background()
	s := newSheet(t)

	if err := s.WriteCell(ctx, 2, 10, "500"); err != nil {
		t.Fatalf("WriteCell: %v", err)
	}
	if err := s.WriteCell(ctx, 2, 10, "1200"); err != nil {
		t.Fatalf("WriteCell overwrite: %v", err)
	}
	col, _ := s.ColumnValues(ctx, 10, 2, 1)
	if col[0] != "1200" {
		t.Fatalf("expected overwrite to 1200, got %q", col[0])
	}

	if err := s.WriteCell(ctx, 2, 10, ""); err != nil {
		t.Fatalf("WriteCell clear: %v", err)
	}
	count, _, err := s.Stats(ctx)
	if err != nil || count != 0 {
		t.Fatalf("expected cleared cell to be deleted, count=%d err=%v", count, err)
	}
}

func TestGormSheet_IsolatedBySheetName(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, &domain.LedgerCell{})
	a := NewGormSheet(db, "a")
	b := NewGormSheet(db, "b")

	if err := a.WriteRow(ctx, 5, 1, []string{"x"}); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if last, _ := b.LastRow(ctx); last != 0 {
		t.Fatalf("sheet b should be empty, LastRow=%d", last)
	}
	vals, err := b.Values(ctx)
	if err != nil || len(vals) != 0 {
		t.Fatalf("sheet b Values = %#v, %v", vals, err)
	}
}

func TestGormSheet_BacksLedgerWriterAndPricing(t *testing.T) {
	ctx := context.Background()
	s := newSheet(t)
	l := ledger.DefaultLayout()

	if err := s.WriteRow(ctx, 1, 1, []string{"Date", "Select Time Slots", "Name"}); err != nil {
		t.Fatalf("headers: %v", err)
	}
	p := ledger.NewPricingStore(s, l)
	if _, err := p.Seed(ctx, decimal.NewFromInt(500)); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	w := ledger.NewWriter(s, l)
	row, err := w.Append(ctx, []string{"2024-05-01", "09 AM - 10 AM", "Asha"})
	if err != nil || row != 2 {
		t.Fatalf("Append row=%d err=%v; want row 2", row, err)
	}

	got, err := ledger.ScanBookedSlots(ctx, s, l, "2024-05-01", nil)
	if err != nil || !got.Has("09 AM - 10 AM") || got.Len() != 1 {
		t.Fatalf("ScanBookedSlots = %v, %v", got, err)
	}

	if err := p.Set(ctx, "monday", decimal.NewFromInt(1200)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	prices, err := p.Get(ctx)
	if err != nil || !prices["monday"].Equal(decimal.NewFromInt(1200)) || len(prices) != 7 {
		t.Fatalf("Get = %v, %v", prices, err)
	}
}
