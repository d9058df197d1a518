package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "video_schema_migrations"

// ErrDirty означает, что прошлая миграция упала на середине и схему надо чинить руками.
var ErrDirty = errors.New("migrate: database is in a dirty state")

func newSource() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// Up brings the users schema to the latest embedded version and logs the
// version it ends on.
func Up(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}

	src, err := newSource()
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}

	if _, dirty, err := m.Version(); err == nil && dirty {
		return ErrDirty
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migrate version: %w", err)
	}
	if latest, err := Latest(); err == nil && version > latest {
		logger.Warn("database schema is newer than this binary",
			zap.Uint("version", version), zap.Uint("latest_known", latest))
	}
	logger.Info("database schema is up to date", zap.Uint("version", version))
	return nil
}

// Latest returns the highest migration version embedded into the binary.
func Latest() (uint, error) {
	src, err := newSource()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
