package ledger

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Layout fixes where the ledger's regions live.
type Layout struct {
	// HeaderRow holds the column headers of the booking region.
	HeaderRow int
	// AnchorCol is the booking column whose emptiness marks an unused row.
	AnchorCol int
	// PricingCol holds day names; PricingCol+1 holds prices.
	PricingCol int
	// PricingFirstRow is the first row of the pricing table.
	PricingFirstRow int
	// PricingRows is the fixed number of pricing rows.
	PricingRows int
}

// DefaultLayout returns the standard layout: headers on row 1, bookings
// anchored on column A, pricing in I..J rows 2-8.
func DefaultLayout() Layout {
	return Layout{
		HeaderRow:       1,
		AnchorCol:       1,
		PricingCol:      9,
		PricingFirstRow: 2,
		PricingRows:     7,
	}
}

// Validate reports layout misconfiguration.
func (l Layout) Validate() error {
	switch {
	case l.HeaderRow < 1:
		return fmt.Errorf("ledger: header row must be >= 1")
	case l.AnchorCol < 1 || l.AnchorCol >= l.PricingCol:
		return fmt.Errorf("ledger: anchor column must be inside the booking region")
	case l.PricingFirstRow <= l.HeaderRow:
		return fmt.Errorf("ledger: pricing rows must start below the header row")
	case l.PricingRows < 1:
		return fmt.Errorf("ledger: pricing table needs at least one row")
	}
	return nil
}

// BookingHeaders returns the contiguous run of non-empty header cells that
// starts at column A and stops before the pricing column.
func (l Layout) BookingHeaders(ctx context.Context, sh Sheet) ([]string, error) {
	row, err := sh.Row(ctx, l.HeaderRow)
	if err != nil {
		return nil, err
	}
	return l.bookingHeaders(row), nil
}

func (l Layout) bookingHeaders(row []string) []string {
	limit := l.PricingCol - 1
	if limit > len(row) {
		limit = len(row)
	}
	var out []string
	for i := 0; i < limit; i++ {
		h := strings.TrimSpace(row[i])
		if h == "" {
			break
		}
		out = append(out, h)
	}
	return out
}

// DefaultBookingHeaders is the header row written into an empty ledger.
var DefaultBookingHeaders = []string{
	"Date", "Time Slots", "Name", "Mobile No",
	"Payment Status", "Transaction ID", "Timestamp", "Photo ID",
}

// SeedHeaders writes headers into an empty header row, truncated to the
// columns left of the pricing table. It reports whether anything was written.
func (l Layout) SeedHeaders(ctx context.Context, sh Sheet, headers []string) (bool, error) {
	existing, err := l.BookingHeaders(ctx, sh)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	if max := l.PricingCol - 1; len(headers) > max {
		headers = headers[:max]
	}
	if len(headers) == 0 {
		return false, nil
	}
	if err := sh.WriteRow(ctx, l.HeaderRow, 1, headers); err != nil {
		return false, err
	}
	return true, nil
}

// ColumnIndex converts spreadsheet column letters ("A", "I", "AA") into a
// 1-based index.
func ColumnIndex(letters string) (int, error) {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return 0, fmt.Errorf("ledger: empty column")
	}
	n := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("ledger: bad column %q", letters)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n, nil
}

// NormalizeLabel lowercases a header or field label, trims it and strips
// underscores, so "Mobile_No" and "mobileno" compare equal.
func NormalizeLabel(s string) string {
	return strings.ReplaceAll(cases.Lower(language.Und).String(strings.TrimSpace(s)), "_", "")
}

// FindColumn returns the index of the first header (left to right) whose
// normalized form contains needle, or -1.
func FindColumn(headers []string, needle string) int {
	needle = NormalizeLabel(needle)
	for i, h := range headers {
		if strings.Contains(NormalizeLabel(h), needle) {
			return i
		}
	}
	return -1
}
