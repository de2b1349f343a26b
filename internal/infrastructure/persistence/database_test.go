package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	domain "github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDatabase_SQLite(t *testing.T) {
	db := newTestDatabase(t)

	assert.Equal(t, config.DriverSQLite, db.Driver())
	assert.NoError(t, db.Ping(context.Background()))

	sqlDB, err := db.sqlDB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	for _, table := range []string{"receipts", "receipt_lines", "payments", "allocations"} {
		assert.True(t, db.DB.Migrator().HasTable(table), table)
	}
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDatabase_TransactionRollsBack(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Exec("INSERT INTO allocations (id, payment_id, receipt_id, amount, applied_at) VALUES ('a', 'p', 'r', 1, CURRENT_TIMESTAMP)").Error)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int64
	require.NoError(t, db.DB.Table("allocations").Count(&count).Error)
	assert.Zero(t, count)
}

func TestDatabase_PostgresDialectorWithSQLMock(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectPing()
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	mock.ExpectPing()
	db := &Database{DB: gdb, driver: config.DriverPostgres}
	assert.NoError(t, db.Ping(context.Background()))
	assert.Equal(t, "postgres", db.DB.Dialector.Name())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newMockedPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gdb, mock
}

func TestGormReceiptRepository_SaveWithLockVersionCheck(t *testing.T) {
	const update = `UPDATE "receipts" SET .* WHERE id = \$\d+ AND version = \$\d+`
	const count = `SELECT count\(\*\) FROM "receipts" WHERE id = \$1`

	t.Run("stale version is a concurrency conflict", func(t *testing.T) {
		gdb, mock := newMockedPostgres(t)
		r := issue(t, uuid.New(), uuid.New(), march1, "100")

		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(count).WithArgs(r.ID).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := NewGormReceiptRepository(gdb).SaveWithLock(context.Background(), r)
		assert.True(t, domain.IsConcurrencyConflict(err), "got %v", err)
		assert.Equal(t, 1, r.Version, "version untouched on conflict")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		gdb, mock := newMockedPostgres(t)
		r := issue(t, uuid.New(), uuid.New(), march1, "100")

		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(count).WithArgs(r.ID).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err := NewGormReceiptRepository(gdb).SaveWithLock(context.Background(), r)
		assert.True(t, domain.IsNotFound(err), "got %v", err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("matching version bumps it", func(t *testing.T) {
		gdb, mock := newMockedPostgres(t)
		r := issue(t, uuid.New(), uuid.New(), march1, "100")

		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewGormReceiptRepository(gdb).SaveWithLock(context.Background(), r))
		assert.Equal(t, 2, r.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
