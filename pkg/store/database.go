package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agrione/offline-sync/pkg/database"
)

// DatabaseStore keeps slots in a SQL table (slot_key, value, updated_at)
type DatabaseStore struct {
	db     *sql.DB
	table  string
	driver string // "sqlite", "mysql", "postgres"
}

// NewDatabaseStore creates a new database slot store
// driverName should be "sqlite", "mysql" or "postgres" (or "pgsql")
func NewDatabaseStore(db *sql.DB, table string, driverName string) *DatabaseStore {
	if table == "" {
		table = "sync_slots"
	}
	return &DatabaseStore{db: db, table: table, driver: driverName}
}

func (s *DatabaseStore) isPostgres() bool {
	return database.IsPostgres(s.driver)
}

func (s *DatabaseStore) rebind(query string) string {
	return database.Rebind(s.driver, query)
}

// Migrate creates the slot table if it does not exist
func (s *DatabaseStore) Migrate(ctx context.Context) error {
	valueType := "BLOB"
	switch {
	case s.isPostgres():
		valueType = "BYTEA"
	case s.driver == "mysql":
		valueType = "LONGBLOB"
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		slot_key VARCHAR(191) PRIMARY KEY,
		value %s NOT NULL,
		updated_at BIGINT NOT NULL
	)`, s.table, valueType)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := s.rebind(fmt.Sprintf("SELECT value FROM %s WHERE slot_key = ?", s.table))

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *DatabaseStore) Put(ctx context.Context, key string, value []byte) error {
	// Delete then Insert inside one transaction, portable across drivers
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	delQuery := s.rebind(fmt.Sprintf("DELETE FROM %s WHERE slot_key = ?", s.table))
	if _, err := tx.ExecContext(ctx, delQuery, key); err != nil {
		return err
	}

	insQuery := s.rebind(fmt.Sprintf("INSERT INTO %s (slot_key, value, updated_at) VALUES (?, ?, ?)", s.table))
	if _, err := tx.ExecContext(ctx, insQuery, key, value, time.Now().Unix()); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *DatabaseStore) Forget(ctx context.Context, key string) error {
	query := s.rebind(fmt.Sprintf("DELETE FROM %s WHERE slot_key = ?", s.table))
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}
