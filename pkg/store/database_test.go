package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestDatabaseStore_Put(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	s := NewDatabaseStore(db, "sync_slots", "mysql")
	value := []byte(`[{"id":"1"}]`)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sync_slots WHERE slot_key = \\?").
		WithArgs("agrione-sync-queue").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sync_slots").
		WithArgs("agrione-sync-queue", value, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = s.Put(context.Background(), "agrione-sync-queue", value)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStore_PutRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewDatabaseStore(db, "", "mysql")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sync_slots").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = s.Put(context.Background(), "k", []byte("[]"))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStore_GetPostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewDatabaseStore(db, "sync_slots", "pgsql")

	mock.ExpectQuery(`SELECT value FROM sync_slots WHERE slot_key = \$1`).
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("[]")))

	v, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseStore_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewDatabaseStore(db, "sync_slots", "mysql")
	mock.ExpectQuery("SELECT value FROM sync_slots").WillReturnError(sql.ErrNoRows)

	_, err = s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabaseStore_SQLiteRoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	ctx := context.Background()
	s := NewDatabaseStore(db, "sync_slots", "sqlite")
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))

	_, err = s.Get(ctx, "slot")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "slot", []byte("first")))
	require.NoError(t, s.Put(ctx, "slot", []byte("second")))

	v, err := s.Get(ctx, "slot")
	require.NoError(t, err)
	assert.Equal(t, "second", string(v))

	require.NoError(t, s.Forget(ctx, "slot"))
	_, err = s.Get(ctx, "slot")
	assert.ErrorIs(t, err, ErrNotFound)
}
