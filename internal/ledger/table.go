package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/tbourn/go-turf-booking/internal/datekey"
	"github.com/tbourn/go-turf-booking/internal/slots"
)

// Record is one booking row of the ledger.
type Record struct {
	// Row is the 1-based sheet row.
	Row    int
	Values []string
}

// Get returns the value at column index i, or "" when out of range.
func (r Record) Get(i int) string {
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return strings.TrimSpace(r.Values[i])
}

// Table is the booking region: headers plus non-empty booking rows.
type Table struct {
	Headers []string
	Records []Record
}

// ReadBookings loads the booking region. Rows whose booking cells are all
// empty (for example rows that only carry pricing data) are skipped.
func ReadBookings(ctx context.Context, sh Sheet, l Layout) (Table, error) {
	values, err := sh.Values(ctx)
	if err != nil {
		return Table{}, err
	}
	if len(values) < l.HeaderRow {
		return Table{}, nil
	}
	t := Table{Headers: l.bookingHeaders(values[l.HeaderRow-1])}
	width := len(t.Headers)
	if width == 0 {
		return t, nil
	}
	for i := l.HeaderRow; i < len(values); i++ {
		row := values[i]
		vals := make([]string, width)
		copy(vals, row)
		if allEmpty(vals) {
			continue
		}
		t.Records = append(t.Records, Record{Row: i + 1, Values: vals})
	}
	return t, nil
}

// Column returns the index of the first header containing needle, or -1.
func (t Table) Column(needle string) int { return FindColumn(t.Headers, needle) }

// ForDate returns the records whose date column normalizes to dateKey.
// Rows with unparseable dates never match.
func (t Table) ForDate(dateKey string, loc *time.Location) []Record {
	dateIdx := t.Column("date")
	if dateIdx < 0 {
		return nil
	}
	var out []Record
	for _, r := range t.Records {
		d, err := datekey.NormalizeString(r.Get(dateIdx), loc)
		if err == nil && d == dateKey {
			out = append(out, r)
		}
	}
	return out
}

// AsMap renders a record as header -> value.
func (t Table) AsMap(r Record) map[string]string {
	out := make(map[string]string, len(t.Headers))
	for i, h := range t.Headers {
		out[h] = r.Get(i)
	}
	return out
}

// ScanBookedSlots rebuilds the taken-slot set of dateKey from the ledger.
// It returns an empty set when the date or slot column is missing or the
// ledger has no data rows.
func ScanBookedSlots(ctx context.Context, sh Sheet, l Layout, dateKey string, loc *time.Location) (slots.Set, error) {
	t, err := ReadBookings(ctx, sh, l)
	if err != nil {
		return nil, err
	}
	return t.BookedSlots(dateKey, loc), nil
}

// SlotLoader binds ScanBookedSlots to one sheet, for use as a cache loader.
func SlotLoader(sh Sheet, l Layout, loc *time.Location) func(ctx context.Context, dateKey string) (slots.Set, error) {
	return func(ctx context.Context, dateKey string) (slots.Set, error) {
		return ScanBookedSlots(ctx, sh, l, dateKey, loc)
	}
}

// BookedSlots collects the slot tokens of every record on dateKey.
func (t Table) BookedSlots(dateKey string, loc *time.Location) slots.Set {
	out := slots.Set{}
	slotIdx := t.Column("slot")
	if slotIdx < 0 || t.Column("date") < 0 {
		return out
	}
	for _, r := range t.ForDate(dateKey, loc) {
		out.Add(strings.Split(r.Get(slotIdx), ",")...)
	}
	return out
}

func allEmpty(vals []string) bool {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
