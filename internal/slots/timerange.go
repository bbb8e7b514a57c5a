package slots

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrBadRange is returned when a slot token is not an "<h> AM|PM - <h> AM|PM" range.
var ErrBadRange = errors.New("slot is not an hour range")

// Range is a slot's time span in 24-hour clock hours. End is in 1..24, where
// 24 denotes midnight at the end of the day.
type Range struct {
	Start int
	End   int
}

var rangeRE = regexp.MustCompile(`^\s*(\d{1,2})(?::\d{2})?\s*([AaPp][Mm])\s*-\s*(\d{1,2})(?::\d{2})?\s*([AaPp][Mm])\s*$`)

// ParseRange parses tokens such as "09 AM - 10 AM" or "11 AM - 12 PM".
// Minutes, when present, are accepted and ignored.
func ParseRange(token string) (Range, error) {
	m := rangeRE.FindStringSubmatch(token)
	if m == nil {
		return Range{}, fmt.Errorf("%w: %q", ErrBadRange, token)
	}
	start, err := to24(m[1], m[2])
	if err != nil {
		return Range{}, err
	}
	end, err := to24(m[3], m[4])
	if err != nil {
		return Range{}, err
	}
	if end == 0 {
		end = 24
	}
	return Range{Start: start, End: end}, nil
}

// CompletedBy reports whether the slot has ended by the given hour of day.
func (r Range) CompletedBy(hour int) bool { return r.End <= hour }

func to24(hh, meridiem string) (int, error) {
	h, err := strconv.Atoi(hh)
	if err != nil || h < 1 || h > 12 {
		return 0, fmt.Errorf("%w: hour %q", ErrBadRange, hh)
	}
	h %= 12
	if strings.EqualFold(meridiem, "pm") {
		h += 12
	}
	return h, nil
}
