package availability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor clears the Availability Cache once per local day. Each entry is
// deleted while holding that date's lock, so a purge never lands between a
// commit's conflict check and its cache merge.
type Janitor struct {
	cache  *Cache
	locker Locker
	log    zerolog.Logger
}

// NewJanitor returns a Janitor for cache using locker.
func NewJanitor(cache *Cache, locker Locker, log zerolog.Logger) *Janitor {
	return &Janitor{cache: cache, locker: locker, log: log}
}

// Purge deletes every cached date and returns how many were removed.
func (j *Janitor) Purge(ctx context.Context) (int, error) {
	dates, err := j.cache.DateKeys(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range dates {
		if err := j.purgeOne(ctx, d); err != nil {
			return n, err
		}
		n++
	}
	if ms, ok := j.cache.store.(*MemoryStore); ok {
		ms.Sweep()
	}
	return n, nil
}

func (j *Janitor) purgeOne(ctx context.Context, dateKey string) error {
	unlock, err := j.locker.Lock(ctx, LockKey(dateKey))
	if err != nil {
		return err
	}
	defer unlock()
	return j.cache.Delete(ctx, dateKey)
}

// Run purges at every local midnight until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	for {
		wait := j.cache.TTL()
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		n, err := j.Purge(ctx)
		if err != nil {
			j.log.Error().Err(err).Int("purged", n).Msg("availability purge failed")
			continue
		}
		j.log.Info().Int("purged", n).Msg("availability cache purged")
	}
}
