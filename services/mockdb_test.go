package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDB opens gorm on top of sqlmock with the same options main uses.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}
	return db, mock
}

// uniqueViolation is what Postgres returns for a duplicate natural key.
var uniqueViolation = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

func expectLockedBalance(mock sqlmock.Sqlmock, profileID string, balance int64) {
	mock.ExpectQuery(`SELECT "id","balance" FROM "profiles" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).AddRow(profileID, balance))
}

func expectLedgerWrite(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`UPDATE "profiles" SET "balance"=balance \+ \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "coin_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("journal-1"))
}
