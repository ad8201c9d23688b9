// Package migrator brings the PostgreSQL schema up to date from the
// migrations embedded in the binary.
package migrator

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"team-coordinator/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrDirty means a previous run failed halfway and the schema needs a manual fix.
var ErrDirty = errors.New("database schema is dirty")

func newSource() (source.Driver, error) {
	return iofs.New(migrations, "migrations")
}

// RunMigrations applies every pending migration and logs the schema version
// before and after.
func RunMigrations(cfg config.PostgresConfig, log *slog.Logger) error {
	const op = "migrator.RunMigrations"

	log = log.With(slog.String("op", op))

	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("%s: failed to connect: %w", op, err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("%s: failed to create driver: %w", op, err)
	}

	src, err := newSource()
	if err != nil {
		return fmt.Errorf("%s: failed to open embedded migrations: %w", op, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("%s: failed to create migrate instance: %w", op, err)
	}
	defer m.Close()

	from, err := schemaVersion(m)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("applying database migrations", slog.Uint64("from_version", uint64(from)))

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("database schema is up to date", slog.Uint64("version", uint64(from)))
		return nil
	case err != nil:
		return fmt.Errorf("%s: migration failed: %w", op, err)
	}

	to, err := schemaVersion(m)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("database migrations applied",
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)))

	return nil
}

// schemaVersion is 0 for an empty database.
func schemaVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("version %d: %w", version, ErrDirty)
	}
	return version, nil
}
