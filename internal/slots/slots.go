// Package slots models bookable time slots for a single calendar day.
//
// A Slot Identifier is an opaque token (typically an hour range such as
// "09 AM - 10 AM"); the engine only compares identifiers for equality. A Set
// is the unordered, de-duplicated collection of identifiers taken on one
// Date Key. The wire form of a Set is a comma-joined string, which is also
// how slot lists are stored in ledger cells and cache entries.
package slots

import (
	"sort"
	"strings"
)

// Set is a set of Slot Identifiers.
type Set map[string]struct{}

// New builds a Set from ids, trimming whitespace and skipping empty tokens.
func New(ids ...string) Set {
	s := make(Set, len(ids))
	s.Add(ids...)
	return s
}

// Parse splits a comma-joined slot list into a Set.
func Parse(list string) Set {
	if strings.TrimSpace(list) == "" {
		return Set{}
	}
	return New(strings.Split(list, ",")...)
}

// Add inserts ids into s.
func (s Set) Add(ids ...string) {
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s[id] = struct{}{}
		}
	}
}

// Has reports whether id is in s.
func (s Set) Has(id string) bool {
	_, ok := s[strings.TrimSpace(id)]
	return ok
}

// Len returns the number of identifiers in s.
func (s Set) Len() int { return len(s) }

// Union returns a new Set containing the identifiers of s and o.
func (s Set) Union(o Set) Set {
	out := make(Set, len(s)+len(o))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range o {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the identifiers in chronological order when they parse as
// hour ranges, falling back to lexical order for everything else.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, erri := ParseRange(out[i])
		rj, errj := ParseRange(out[j])
		switch {
		case erri == nil && errj == nil:
			if ri.Start != rj.Start {
				return ri.Start < rj.Start
			}
			if ri.End != rj.End {
				return ri.End < rj.End
			}
		case erri == nil:
			return true
		case errj == nil:
			return false
		}
		return out[i] < out[j]
	})
	return out
}

// String renders s in its comma-joined wire form.
func (s Set) String() string { return strings.Join(s.Sorted(), ",") }

// Conflicts returns requested ∩ existing. A non-empty result means the
// requested slots cannot be committed.
func Conflicts(requested, existing Set) Set {
	out := Set{}
	for id := range requested {
		if _, taken := existing[id]; taken {
			out[id] = struct{}{}
		}
	}
	return out
}
