package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	LockDriverRedis = "redis"
	LockDriverLocal = "local"
)

type Config struct {
	Env      string         `env:"ENV" env-default:"local"`
	Server   HTTPServer     `env-prefix:"SERVER_"`
	Storage  StorageConfig  `env-prefix:"STORAGE_"`
	Postgres PostgresConfig `env-prefix:"PG_"`
	Redis    RedisConfig    `env-prefix:"REDIS_"`
	Lock     LockConfig     `env-prefix:"LOCK_"`
	Auth     AuthConfig     `env-prefix:"AUTH_"`
}

type HTTPServer struct {
	Port    string        `env:"PORT" env-default:"8080"`
	Timeout time.Duration `env:"TIMEOUT" env-default:"5s"`
}

type StorageConfig struct {
	Driver   string `env:"DRIVER" env-default:"postgres"`
	SeedFile string `env:"SEED_FILE"`
}

type PostgresConfig struct {
	Host     string `env:"HOST" env-default:"localhost"`
	Port     string `env:"PORT" env-default:"5432"`
	User     string `env:"USER" env-default:"postgres"`
	Password string `env:"PASSWORD" env-default:"postgres"`
	DbName   string `env:"DBNAME" env-default:"teams_db"`
	SslMode  string `env:"SSLMODE" env-default:"disable"`
}

// DSN renders the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DbName, c.SslMode)
}

type RedisConfig struct {
	Addr     string `env:"ADDR" env-default:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" env-default:"0"`
}

// LockConfig bounds every lock acquisition: an attempt waits at most Wait,
// at most Attempts attempts are made, Backoff apart. TTL caps how long a
// crashed holder can block others; live holders extend it while they work.
type LockConfig struct {
	Driver   string        `env:"DRIVER" env-default:"redis"`
	Prefix   string        `env:"PREFIX" env-default:"teamup:lock:"`
	Wait     time.Duration `env:"WAIT" env-default:"500ms"`
	TTL      time.Duration `env:"TTL" env-default:"3s"`
	Attempts uint64        `env:"ATTEMPTS" env-default:"5"`
	Backoff  time.Duration `env:"BACKOFF" env-default:"100ms"`
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET" env-default:"change-me"`
}

// Load reads the config from the environment and checks driver names.
func Load() (*Config, error) {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Lock.Driver {
	case LockDriverRedis, LockDriverLocal:
	default:
		return fmt.Errorf("unknown lock driver %q", c.Lock.Driver)
	}

	if c.Lock.Attempts == 0 {
		return fmt.Errorf("lock attempts must be positive")
	}
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("lock ttl must be positive")
	}
	if c.Lock.Wait < 0 || c.Lock.Backoff < 0 {
		return fmt.Errorf("lock wait and backoff must not be negative")
	}

	return nil
}
