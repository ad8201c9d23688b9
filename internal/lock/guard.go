package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"team-coordinator/internal/apperrors"
	"team-coordinator/internal/lib/logger/sl"
)

// Policy bounds a lock acquisition. At most Attempts tries are made, each
// waiting up to Wait, with Backoff between tries.
type Policy struct {
	Wait     time.Duration
	TTL      time.Duration
	Attempts uint64
	Backoff  time.Duration
}

const releaseTimeout = time.Second

var (
	errBusy    = errors.New("lock is busy")
	errNotHeld = errors.New("lock is no longer held by this token")
)

// Guard runs functions while holding one or more locks.
type Guard struct {
	log     *slog.Logger
	locker  Locker
	policy  Policy
	metrics *Metrics
}

func NewGuard(log *slog.Logger, locker Locker, policy Policy, metrics *Metrics) *Guard {
	if policy.Attempts == 0 {
		policy.Attempts = 1
	}
	if policy.Backoff <= 0 {
		policy.Backoff = time.Millisecond
	}
	return &Guard{
		log:     log,
		locker:  locker,
		policy:  policy,
		metrics: metrics,
	}
}

// WithLocks acquires names in the given order, runs fn and releases them in
// reverse order. Callers must pass names in a globally consistent order.
// fn never runs without every lock held; when a lock cannot be taken the
// returned error is of kind apperrors.ErrLockService.
//
// While fn runs the locks are extended every third of the TTL. If one of
// them is lost anyway, the context handed to fn is cancelled so a pending
// transaction rolls back instead of committing unprotected.
func (g *Guard) WithLocks(ctx context.Context, names []string, fn func(ctx context.Context) error) error {
	held := make([]heldLock, 0, len(names))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			g.release(ctx, held[i].name, held[i].token)
		}
	}()

	for _, name := range names {
		token := uuid.NewString()
		if err := g.acquire(ctx, name, token); err != nil {
			return err
		}
		held = append(held, heldLock{name: name, token: token})
	}

	if len(held) == 0 || g.policy.TTL <= 0 {
		return fn(ctx)
	}

	return g.hold(ctx, held, fn)
}

type heldLock struct {
	name  string
	token string
}

func (g *Guard) hold(ctx context.Context, held []heldLock, fn func(ctx context.Context) error) error {
	fnCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.keepAlive(fnCtx, held, stop, cancel)
	}()

	err := fn(fnCtx)
	close(stop)
	<-done

	if err != nil {
		if cause := context.Cause(fnCtx); errors.Is(cause, apperrors.ErrLockLost) {
			return cause
		}
	}
	return err
}

func (g *Guard) keepAlive(ctx context.Context, held []heldLock, stop <-chan struct{}, lost context.CancelCauseFunc) {
	const op = "lock.Guard.keepAlive"

	interval := g.policy.TTL / 3
	if interval <= 0 {
		interval = g.policy.TTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, h := range held {
			extendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			ok, err := g.locker.Extend(extendCtx, h.name, h.token, g.policy.TTL)
			cancel()
			if err == nil && ok {
				continue
			}
			if err == nil {
				err = errNotHeld
			}

			g.log.Error("lock lost while held",
				slog.String("op", op),
				slog.String("lock", h.name),
				sl.Err(err))
			lost(fmt.Errorf("%s: %s: %w", op, h.name, apperrors.ErrLockLost))
			return
		}
	}
}

func (g *Guard) acquire(ctx context.Context, name, token string) error {
	const op = "lock.Guard.acquire"

	started := time.Now()
	backoff := retry.WithMaxRetries(g.policy.Attempts-1, retry.NewConstant(g.policy.Backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := g.locker.TryAcquire(ctx, name, token, g.policy.Wait, g.policy.TTL)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(errBusy)
		}
		return nil
	})

	switch {
	case err == nil:
		g.metrics.observe(outcomeAcquired, started)
		return nil
	case errors.Is(err, errBusy):
		g.metrics.observe(outcomeTimeout, started)
		g.log.Warn("lock acquisition timed out",
			slog.String("op", op),
			slog.String("lock", name),
			slog.Uint64("attempts", g.policy.Attempts))
		return fmt.Errorf("%s: %s: %w", op, name, apperrors.ErrLockTimeout)
	default:
		g.metrics.observe(outcomeError, started)
		g.log.Error("lock acquisition failed",
			slog.String("op", op),
			slog.String("lock", name),
			sl.Err(err))
		return fmt.Errorf("%s: %s: %w: %w", op, name, apperrors.ErrLockUnavailable, err)
	}
}

// release runs on a context detached from the caller's cancellation so an
// abandoned request still frees its locks before the TTL does.
func (g *Guard) release(ctx context.Context, name, token string) {
	const op = "lock.Guard.release"

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := g.locker.Release(releaseCtx, name, token); err != nil {
		g.log.Error("failed to release lock",
			slog.String("op", op),
			slog.String("lock", name),
			sl.Err(err))
	}
}
