package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrHeld is returned when a key is already locked by another holder.
var ErrHeld = errors.New("lock held")

// Release gives a lock back. Releasing an expired lock is not an error.
type Release func(ctx context.Context) error

// Locker is an advisory try-lock keyed by string.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// UserKey is the lock key guarding one user's shift records.
func UserKey(userID string) string {
	return "timeclock:lock:user:" + userID
}

// AcquireAll locks every key in sorted order. On failure the keys already
// taken are released before returning.
func AcquireAll(ctx context.Context, l Locker, keys []string, ttl time.Duration) (Release, error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	releases := make([]Release, 0, len(sorted))
	releaseAll := func(ctx context.Context) error {
		var errs []error
		for i := len(releases) - 1; i >= 0; i-- {
			if err := releases[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	for i, k := range sorted {
		if i > 0 && k == sorted[i-1] {
			continue
		}
		rel, err := l.Acquire(ctx, k, ttl)
		if err != nil {
			_ = releaseAll(context.WithoutCancel(ctx))
			return nil, err
		}
		releases = append(releases, rel)
	}
	return releaseAll, nil
}

// MemoryLocker is a process-local Locker for single-node deployments and tests.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]memoryEntry
	now  func() time.Time
	seq  uint64
}

type memoryEntry struct {
	token   uint64
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && (e.expires.IsZero() || now.Before(e.expires)) {
		return nil, ErrHeld
	}

	l.seq++
	e := memoryEntry{token: l.seq}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	l.held[key] = e

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.held[key]; ok && cur.token == e.token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
