// Package datekey canonicalizes heterogeneous calendar-date inputs into the
// yyyy-MM-dd Date Key used to index bookings and availability.
//
// Accepted inputs:
//   - time.Time / *time.Time values (rendered in the configured location)
//   - RFC 3339 timestamps and "YYYY-MM-DD hh:mm:ss" strings
//   - YYYY-MM-DD, YYYY/MM/DD, YYYY.MM.DD
//   - DD-MM-YYYY, DD/MM/YYYY, DD.MM.YYYY
//
// Disambiguation rule: the four-digit segment is the year. When the year
// comes first the order is year-month-day. When the year comes last the order
// is day-month-year, except when the middle segment cannot be a month (> 12)
// while the first one can, in which case month-day-year is the only valid
// reading. Two-digit years and inputs that no reading makes valid are
// rejected with ErrAmbiguous / ErrInvalid instead of being guessed.
package datekey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical Date Key layout.
const Layout = "2006-01-02"

var (
	// ErrInvalid is returned for empty or unparseable inputs.
	ErrInvalid = errors.New("invalid date")
	// ErrAmbiguous is returned when the input cannot be read without guessing.
	ErrAmbiguous = errors.New("ambiguous date")
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Normalize converts v into a Date Key. Time values are rendered in loc
// (UTC when loc is nil); strings go through NormalizeString.
func Normalize(v any, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "", ErrInvalid
		}
		return t.In(loc).Format(Layout), nil
	case *time.Time:
		if t == nil {
			return "", ErrInvalid
		}
		return Normalize(*t, loc)
	case string:
		return NormalizeString(t, loc)
	case nil:
		return "", ErrInvalid
	default:
		return NormalizeString(fmt.Sprint(v), loc)
	}
}

// NormalizeString parses a date string per the package rules.
func NormalizeString(s string, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalid
	}

	if len(s) > 10 {
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.In(loc).Format(Layout), nil
			}
		}
	}

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '/' || r == '.' })
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%w: %q", ErrInvalid, s)
		}
		nums[i] = n
	}

	var y, m, d int
	switch {
	case len(parts[0]) == 4:
		y, m, d = nums[0], nums[1], nums[2]
	case len(parts[2]) == 4:
		y = nums[2]
		first, second := nums[0], nums[1]
		switch {
		case second <= 12:
			d, m = first, second
		case first <= 12:
			m, d = first, second
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalid, s)
		}
	default:
		return "", fmt.Errorf("%w: %q has no four-digit year", ErrAmbiguous, s)
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return t.Format(Layout), nil
}

// Today returns the Date Key of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(Layout)
}
