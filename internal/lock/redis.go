package lock

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a token-checked release.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	const op = "lock.NewRedisClient"

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return client, nil
}

func (l *RedisLocker) TryAcquire(ctx context.Context, name, token string, wait, ttl time.Duration) (bool, error) {
	const op = "lock.redis.TryAcquire"

	key := l.prefix + name
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
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

func (l *RedisLocker) Release(ctx context.Context, name, token string) error {
	const op = "lock.redis.Release"

	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + name}, token).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (l *RedisLocker) Extend(ctx context.Context, name, token string, ttl time.Duration) (bool, error) {
	const op = "lock.redis.Extend"

	n, err := extendScript.Run(ctx, l.client, []string{l.prefix + name}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n == 1, nil
}
