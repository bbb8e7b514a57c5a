package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned when a lease expired before it was released.
var ErrLockNotHeld = errors.New("availability: lock not held")

// Locker provides mutual exclusion per key. The returned unlock func must be
// called exactly once; extra calls are no-ops.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LockKey is the lock name guarding one Date Key.
func LockKey(dateKey string) string { return "lock:booked_" + dateKey }

type keyLock struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Entries are dropped once no goroutine
// holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock implements Locker. It gives up with ctx.Err() when ctx ends first.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	kl, ok := k.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		k.locks[key] = kl
	}
	kl.refs++
	k.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.sem
			k.release(key, kl)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, kl *keyLock) {
	k.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// Len returns the number of keys currently tracked.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only if it still carries our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a lease lock shared by every process using the same Redis.
// A held lease is renewed every TTL/3 until unlock, so TTL bounds how long a
// crashed holder blocks others rather than how long a live holder may work.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	// OnLeaseError, when set, observes failed renewals and releases.
	// ErrLockNotHeld means another process may have taken the lease.
	OnLeaseError func(key string, err error)
}

// NewRedisLocker returns a RedisLocker with lease ttl.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, retry: 25 * time.Millisecond}
}

// Lock implements Locker, polling until the lease is acquired or ctx ends.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	wait := r.retry
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		if wait < 500*time.Millisecond {
			wait *= 2
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.renew(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			n, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int()
			if err == nil && n == 0 {
				err = ErrLockNotHeld
			}
			if err != nil {
				r.report(key, err)
			}
		})
	}, nil
}

// renew extends the lease until stop closes or the lease is found lost.
// Transient Redis errors are reported and retried on the next tick.
func (r *RedisLocker) renew(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	every := r.ttl / 3
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), every)
		n, err := renewScript.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			r.report(key, fmt.Errorf("renew %s: %w", key, err))
		case n == 0:
			r.report(key, ErrLockNotHeld)
			return
		}
	}
}

func (r *RedisLocker) report(key string, err error) {
	if r.OnLeaseError != nil {
		r.OnLeaseError(key, err)
	}
}
