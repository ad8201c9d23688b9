// Package lock provides named, time-bounded mutual exclusion.
//
// A Locker grants a lock name to one token holder at a time. Locks expire
// on their own after the hold TTL, so a crashed holder cannot block others
// forever. Guard layers a bounded retry policy and release bookkeeping on top.
package lock

import (
	"context"
	"strconv"
	"time"
)

type Locker interface {
	// TryAcquire tries to take name for token, waiting at most wait.
	// It reports false when the lock is still held by someone else.
	TryAcquire(ctx context.Context, name, token string, wait, ttl time.Duration) (bool, error)
	// Release frees name if token still holds it. Releasing a lock that is
	// not held, or held by another token, is a no-op.
	Release(ctx context.Context, name, token string) error
	// Extend resets the TTL of name if token still holds it and reports
	// whether it did.
	Extend(ctx context.Context, name, token string, ttl time.Duration) (bool, error)
}

const pollInterval = 25 * time.Millisecond

// TeamKey is the lock name guarding a single team's membership.
func TeamKey(teamID int64) string {
	return "team:" + strconv.FormatInt(teamID, 10)
}

// UserKey is the lock name guarding a single user's team counters.
func UserKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func nextPoll(deadline time.Time) time.Duration {
	left := time.Until(deadline)
	if left < pollInterval {
		return left
	}
	return pollInterval
}
