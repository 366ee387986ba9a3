package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"root:pw@tcp(db:3306)/auth?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		DSN("root", "pw", "db", "3306", "auth"))
	assert.Equal(t,
		"root@tcp(db:3306)/auth?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		DSN("root", "", "db", "3306", "auth"))
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n  CREATE TABLE b (y INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, got)
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/0002_b.sql": {Data: []byte("CREATE TABLE b (y INT);")},
		"migrations/0001_a.sql": {Data: []byte("CREATE TABLE a (x INT);\nCREATE INDEX ix ON a (x);")},
		"migrations/README":     {Data: []byte("ignored")},
	}
}

func TestMigrate_AppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schema_migrations`).WithArgs("0001_a.sql").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schema_migrations`).WithArgs("0002_b.sql").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`CREATE TABLE b`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("0002_b.sql").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, migrate(context.Background(), db, testFS()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StatementFailureStops(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schema_migrations`).WithArgs("0001_a.sql").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`CREATE TABLE a`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX ix`).WillReturnError(errors.New("boom"))

	err = migrate(context.Background(), db, testFS())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 0001_a.sql: boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedSchemaDeclaresLedger(t *testing.T) {
	script, err := migrationFiles.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	stmts := splitStatements(string(script))
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS users")
	assert.Contains(t, stmts[1], "token_hash  CHAR(64)")
}
