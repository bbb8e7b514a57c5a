package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tbourn/go-turf-booking/internal/slots"
)

// KeyPrefix prefixes every cache entry; the suffix is the Date Key.
const KeyPrefix = "booked_"

// ErrNotListable is returned by DateKeys when the Store cannot enumerate keys.
var ErrNotListable = errors.New("availability: store cannot list keys")

// Loader rebuilds a date's taken slots from the source of truth.
type Loader func(ctx context.Context, dateKey string) (slots.Set, error)

// Cache maps Date Keys to taken Slot Sets. An absent entry and an empty set
// are different: the first means "unknown", the second "nothing booked".
// Entries expire at the next local midnight.
type Cache struct {
	store Store
	load  Loader
	loc   *time.Location
	now   func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithLocation sets the zone whose midnight ends an entry's life.
func WithLocation(loc *time.Location) Option { return func(c *Cache) { c.loc = loc } }

// NewCache returns a Cache over store. load is used on misses; it may be nil,
// in which case misses stay misses.
func NewCache(store Store, load Loader, opts ...Option) *Cache {
	c := &Cache{store: store, load: load, loc: time.UTC, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Key returns the store key for dateKey.
func Key(dateKey string) string { return KeyPrefix + dateKey }

// TTL returns the time left until the next local midnight.
func (c *Cache) TTL() time.Duration {
	now := c.now().In(c.loc)
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, c.loc)
	return midnight.Sub(now)
}

// Get returns the cached set and whether an entry exists.
func (c *Cache) Get(ctx context.Context, dateKey string) (slots.Set, bool, error) {
	raw, ok, err := c.store.Get(ctx, Key(dateKey))
	if err != nil || !ok {
		return nil, false, err
	}
	return slots.Parse(string(raw)), true, nil
}

// Put replaces the entry for dateKey. An empty set is stored as present.
func (c *Cache) Put(ctx context.Context, dateKey string, s slots.Set) error {
	if s == nil {
		s = slots.Set{}
	}
	return c.store.Set(ctx, Key(dateKey), []byte(s.String()), c.TTL())
}

// Load returns the entry for dateKey, rebuilding and storing it through the
// Loader on a miss. hit reports whether the entry was already cached. The
// fill is an unconditional Put, so callers hold the date lock.
func (c *Cache) Load(ctx context.Context, dateKey string) (s slots.Set, hit bool, err error) {
	s, ok, err := c.Get(ctx, dateKey)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return s, true, nil
	}
	if c.load == nil {
		return slots.Set{}, false, nil
	}
	s, err = c.load(ctx, dateKey)
	if err != nil {
		return nil, false, err
	}
	if err := c.Put(ctx, dateKey, s); err != nil {
		return s, false, err
	}
	return s, false, nil
}

// Merge adds newSlots to the entry for dateKey and returns the result. An
// absent entry is first rebuilt through the Loader so the stored set never
// covers only the new slots.
func (c *Cache) Merge(ctx context.Context, dateKey string, newSlots slots.Set) (slots.Set, error) {
	existing, ok, err := c.Get(ctx, dateKey)
	if err != nil {
		return nil, err
	}
	if !ok && c.load != nil {
		if existing, err = c.load(ctx, dateKey); err != nil {
			return nil, err
		}
	}
	merged := existing.Union(newSlots)
	if err := c.Put(ctx, dateKey, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Delete removes the entry for dateKey.
func (c *Cache) Delete(ctx context.Context, dateKey string) error {
	return c.store.Delete(ctx, Key(dateKey))
}

// DateKeys lists the Date Keys that currently have entries.
func (c *Cache) DateKeys(ctx context.Context) ([]string, error) {
	l, ok := c.store.(Lister)
	if !ok {
		return nil, ErrNotListable
	}
	keys, err := l.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, KeyPrefix))
	}
	return out, nil
}
