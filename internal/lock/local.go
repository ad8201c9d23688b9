package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type localEntry struct {
	token   string
	expires time.Time
}

// LocalLocker is an in-process Locker for single-instance deployments.
// It honours the same TTL semantics as RedisLocker.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]localEntry
	now  func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held: make(map[string]localEntry),
		now:  time.Now,
	}
}

func (l *LocalLocker) TryAcquire(ctx context.Context, name, token string, wait, ttl time.Duration) (bool, error) {
	const op = "lock.local.TryAcquire"

	deadline := time.Now().Add(wait)

	for {
		if l.tryOnce(name, token, ttl) {
			return true, nil
		}

		if !time.Now().Before(deadline) {
			return false, nil
		}
		if err := sleepCtx(ctx, nextPoll(deadline)); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}
}

func (l *LocalLocker) tryOnce(name, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[name]; ok && now.Before(e.expires) {
		return false
	}
	l.held[name] = localEntry{token: token, expires: now.Add(ttl)}
	return true
}

func (l *LocalLocker) Release(_ context.Context, name, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.held[name]; ok && e.token == token {
		delete(l.held, name)
	}
	return nil
}

func (l *LocalLocker) Extend(_ context.Context, name, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.held[name]
	if !ok || e.token != token || !now.Before(e.expires) {
		return false, nil
	}
	e.expires = now.Add(ttl)
	l.held[name] = e
	return true, nil
}
