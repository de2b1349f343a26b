package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/erp/ledger/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator applies the ledger schema with golang-migrate. Sources are either
// a directory on disk or the files compiled into the binary.
type Migrator struct {
	migrate *migrate.Migrate
	source  fs.FS
	logger  *zap.Logger
}

// Status summarises where the database stands against the available files
type Status struct {
	Version uint
	Dirty   bool
	Applied []string
	Pending []string
}

// New creates a Migrator over an open postgres handle. An empty path uses
// the embedded schema.
func New(db *sql.DB, path string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	if path == "" {
		src, err := iofs.New(migrations.Files, ".")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
		if err != nil {
			return nil, fmt.Errorf("failed to create migrate instance: %w", err)
		}
		return newMigrator(m, migrations.Files, logger), nil
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return newMigrator(m, dirFS(path), logger), nil
}

// NewFromURL creates a Migrator from a database URL and a directory
func NewFromURL(databaseURL, path string, logger *zap.Logger) (*Migrator, error) {
	m, err := migrate.New("file://"+path, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return newMigrator(m, dirFS(path), logger), nil
}

func newMigrator(m *migrate.Migrate, source fs.FS, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{migrate: m, source: source, logger: logger}
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	m.logger.Info("Applying ledger migrations")
	return m.run("up", m.migrate.Up, true)
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	m.logger.Warn("Rolling back all ledger migrations")
	return m.run("down", m.migrate.Down, false)
}

// Steps applies n migrations, rolling back when n is negative
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Stepping ledger migrations", zap.Int("steps", n))
	return m.run(fmt.Sprintf("steps %+d", n), func() error { return m.migrate.Steps(n) }, true)
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	m.logger.Info("Migrating ledger schema", zap.Uint("target_version", version))
	return m.run(fmt.Sprintf("goto %d", version), func() error { return m.migrate.Migrate(version) }, true)
}

// run executes one golang-migrate action. ErrNoChange is success; the
// resulting version is logged when report is set.
func (m *Migrator) run(action string, fn func() error, report bool) error {
	err := fn()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		m.logger.Info("Ledger schema unchanged", zap.String("action", action))
		return nil
	case err != nil:
		return fmt.Errorf("migration %s failed: %w", action, err)
	case !report:
		m.logger.Info("Ledger migrations finished", zap.String("action", action))
		return nil
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Ledger migrations finished",
		zap.String("action", action),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// Version returns the current version; zero means nothing is applied
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Status splits the available migrations into applied and pending
func (m *Migrator) Status() (*Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return nil, err
	}
	names, err := listMigrations(m.source)
	if err != nil {
		return nil, err
	}

	st := &Status{Version: version, Dirty: dirty}
	for _, name := range names {
		v, ok := parseVersion(name)
		if !ok {
			continue
		}
		if v <= version {
			st.Applied = append(st.Applied, name)
		} else {
			st.Pending = append(st.Pending, name)
		}
	}
	return st, nil
}

// Force records version as applied without running anything. It is the way
// out of a dirty state after a failed migration was fixed by hand.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))

	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table, ledger history included
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping ledger database, all receipts and payments will be lost")

	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}
	return nil
}

// Close releases the source and database handles
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}

// parseVersion reads the numeric prefix of "000002_add_index"
func parseVersion(name string) (uint, bool) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok || prefix == "" {
		return 0, false
	}
	var v uint
	for _, c := range prefix {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint(c-'0')
	}
	return v, true
}
