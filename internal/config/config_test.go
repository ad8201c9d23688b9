package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, LockDriverRedis, cfg.Lock.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.Lock.Wait)
	assert.Equal(t, 3*time.Second, cfg.Lock.TTL)
	assert.Equal(t, uint64(5), cfg.Lock.Attempts)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOCK_DRIVER", "local")
	t.Setenv("LOCK_WAIT", "2s")
	t.Setenv("LOCK_ATTEMPTS", "3")
	t.Setenv("PG_HOST", "db")
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, LockDriverLocal, cfg.Lock.Driver)
	assert.Equal(t, 2*time.Second, cfg.Lock.Wait)
	assert.Equal(t, uint64(3), cfg.Lock.Attempts)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Contains(t, cfg.Postgres.DSN(), "host=db port=5432")
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "storage driver", key: "STORAGE_DRIVER", val: "mongo"},
		{name: "lock driver", key: "LOCK_DRIVER", val: "zookeeper"},
		{name: "zero attempts", key: "LOCK_ATTEMPTS", val: "0"},
		{name: "zero ttl", key: "LOCK_TTL", val: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
