package ledger

import (
	"sort"
	"strings"
)

// SystemFields are the values the engine itself owns. Submitted data never
// reaches the columns they map to.
type SystemFields struct {
	PaymentStatus string
	TransactionID string
	Timestamp     string
	DocumentLink  string
}

// MapperOptions configures label resolution.
type MapperOptions struct {
	// Aliases maps a normalized submitted label to a normalized header,
	// e.g. "mobile" -> "mobileno".
	Aliases map[string]string
	// Fuzzy enables substring matching between labels and headers when no
	// exact, alias or normalized match exists.
	Fuzzy bool
	// OnFuzzy, when set, is called for every header resolved by substring
	// matching.
	OnFuzzy func(header, label string)
}

// Mapper turns a loosely labelled submission into one ledger row.
type Mapper struct {
	aliases map[string]string
	fuzzy   bool
	onFuzzy func(header, label string)
}

// NewMapper builds a Mapper. Alias keys and values are normalized.
func NewMapper(opts MapperOptions) *Mapper {
	aliases := make(map[string]string, len(opts.Aliases))
	for k, v := range opts.Aliases {
		if nk, nv := NormalizeLabel(k), NormalizeLabel(v); nk != "" && nv != "" {
			aliases[nk] = nv
		}
	}
	return &Mapper{aliases: aliases, fuzzy: opts.Fuzzy, onFuzzy: opts.OnFuzzy}
}

// Map produces one value per header, in header order. For each header the
// first rule that matches wins:
//
//  1. system columns (payment status, transaction id, timestamp, document
//     link) always take the engine's value
//  2. a submitted label equal to the header
//  3. a configured alias whose target is the header's normalized form
//  4. a submitted label whose normalized form equals the header's
//  5. with fuzzy matching on, a normalized label contained in the header's
//     normalized form or containing it
//
// Labels are visited in sorted order, so results are deterministic even
// when several labels could match. Unmatched headers stay empty.
func (m *Mapper) Map(headers []string, fields map[string]string, sys SystemFields) []string {
	labels := make([]string, 0, len(fields))
	for k := range fields {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	row := make([]string, len(headers))
	for i, h := range headers {
		if v, ok := systemValue(h, sys); ok {
			row[i] = v
			continue
		}
		row[i] = m.resolve(h, labels, fields)
	}
	return row
}

func (m *Mapper) resolve(header string, labels []string, fields map[string]string) string {
	if v, ok := fields[header]; ok {
		return v
	}
	nh := NormalizeLabel(header)
	if nh == "" {
		return ""
	}
	for _, l := range labels {
		if target, ok := m.aliases[NormalizeLabel(l)]; ok && target == nh {
			return fields[l]
		}
	}
	for _, l := range labels {
		if NormalizeLabel(l) == nh {
			return fields[l]
		}
	}
	if !m.fuzzy {
		return ""
	}
	for _, l := range labels {
		nl := NormalizeLabel(l)
		if nl == "" {
			continue
		}
		if strings.Contains(nh, nl) || strings.Contains(nl, nh) {
			if m.onFuzzy != nil {
				m.onFuzzy(header, l)
			}
			return fields[l]
		}
	}
	return ""
}

// IsSystemColumn reports whether header is owned by the engine.
func IsSystemColumn(header string) bool {
	_, ok := systemValue(header, SystemFields{})
	return ok
}

func systemValue(header string, sys SystemFields) (string, bool) {
	n := strings.ReplaceAll(NormalizeLabel(header), " ", "")
	switch {
	case n == "paymentstatus":
		return sys.PaymentStatus, true
	case n == "transactionid":
		return sys.TransactionID, true
	case n == "timestamp":
		return sys.Timestamp, true
	case strings.Contains(n, "photo"), strings.Contains(n, "idproof"), n == "filelink":
		return sys.DocumentLink, true
	}
	return "", false
}
