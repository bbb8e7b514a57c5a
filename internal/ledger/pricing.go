package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrDayNotFound is returned by Set when no pricing row names the day.
	ErrDayNotFound = errors.New("ledger: day not found in pricing table")
	// ErrNegativePrice is returned by Set for prices below zero.
	ErrNegativePrice = errors.New("ledger: price must not be negative")
)

// Weekdays are the canonical day names written by Seed.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// PricingStore reads and updates the fixed day -> price table. It never
// inserts or deletes rows.
type PricingStore struct {
	sheet  Sheet
	layout Layout
}

// NewPricingStore returns a PricingStore over sh.
func NewPricingStore(sh Sheet, l Layout) *PricingStore {
	return &PricingStore{sheet: sh, layout: l}
}

func (p *PricingStore) region(ctx context.Context) (days, prices []string, err error) {
	days, err = p.sheet.ColumnValues(ctx, p.layout.PricingCol, p.layout.PricingFirstRow, p.layout.PricingRows)
	if err != nil {
		return nil, nil, err
	}
	prices, err = p.sheet.ColumnValues(ctx, p.layout.PricingCol+1, p.layout.PricingFirstRow, p.layout.PricingRows)
	if err != nil {
		return nil, nil, err
	}
	return days, prices, nil
}

// Get returns the table keyed by lowercase day name. Rows with a blank day
// or a non-numeric price are left out.
func (p *PricingStore) Get(ctx context.Context) (map[string]decimal.Decimal, error) {
	days, prices, err := p.region(ctx)
	if err != nil {
		return nil, err
	}
	lower := cases.Lower(language.Und)
	out := make(map[string]decimal.Decimal, len(days))
	for i, d := range days {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(prices[i]))
		if err != nil {
			continue
		}
		out[lower.String(d)] = price
	}
	return out, nil
}

// Set overwrites the price of the row whose day cell matches day
// case-insensitively.
func (p *PricingStore) Set(ctx context.Context, day string, price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrNegativePrice
	}
	day = strings.TrimSpace(day)
	if day == "" {
		return ErrDayNotFound
	}
	days, err := p.sheet.ColumnValues(ctx, p.layout.PricingCol, p.layout.PricingFirstRow, p.layout.PricingRows)
	if err != nil {
		return err
	}
	for i, d := range days {
		if strings.EqualFold(strings.TrimSpace(d), day) {
			return p.sheet.WriteCell(ctx, p.layout.PricingFirstRow+i, p.layout.PricingCol+1, price.String())
		}
	}
	return ErrDayNotFound
}

// Seed writes the Day/Price headers and the seven weekdays at price when the
// region is empty. It reports whether anything was written.
func (p *PricingStore) Seed(ctx context.Context, price decimal.Decimal) (bool, error) {
	days, err := p.sheet.ColumnValues(ctx, p.layout.PricingCol, p.layout.PricingFirstRow, p.layout.PricingRows)
	if err != nil {
		return false, err
	}
	for _, d := range days {
		if strings.TrimSpace(d) != "" {
			return false, nil
		}
	}
	if err := p.sheet.WriteRow(ctx, p.layout.HeaderRow, p.layout.PricingCol, []string{"Day", "Price"}); err != nil {
		return false, err
	}
	for i := 0; i < p.layout.PricingRows && i < len(Weekdays); i++ {
		row := p.layout.PricingFirstRow + i
		if err := p.sheet.WriteRow(ctx, row, p.layout.PricingCol, []string{Weekdays[i], price.String()}); err != nil {
			return false, err
		}
	}
	return true, nil
}
