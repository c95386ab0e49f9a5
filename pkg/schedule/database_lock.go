package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"hash/crc32"
	"sync"
	"time"

	"github.com/agrione/offline-sync/pkg/database"
)

// DatabaseLockProvider implements LockProvider using SQL database locks.
// MySQL and Postgres locks belong to a session, so the connection that
// acquired a lock is held until it is released.
type DatabaseLockProvider struct {
	db     *sql.DB
	driver string // "mysql", "postgres" or "sqlite"
	table  string
	now    func() time.Time

	mu    sync.Mutex
	conns map[string]*sql.Conn
}

// NewDatabaseLockProvider creates a new database lock provider
func NewDatabaseLockProvider(db *sql.DB, driver string) *DatabaseLockProvider {
	return &DatabaseLockProvider{
		db:     db,
		driver: driver,
		table:  "sync_locks",
		now:    time.Now,
		conns:  make(map[string]*sql.Conn),
	}
}

func (d *DatabaseLockProvider) isSQLite() bool {
	return d.driver == "sqlite" || d.driver == "sqlite3"
}

// Migrate creates the lock table SQLite needs. Other drivers use native locks.
func (d *DatabaseLockProvider) Migrate(ctx context.Context) error {
	if !d.isSQLite() {
		return nil
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY,
		expires_at INTEGER NOT NULL
	)`, d.table)
	_, err := d.db.ExecContext(ctx, query)
	return err
}

// GetLock attempts to acquire a lock
func (d *DatabaseLockProvider) GetLock(ctx context.Context, name string, duration time.Duration) (bool, error) {
	if d.isSQLite() {
		return d.getSQLiteLock(ctx, name, duration)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, held := d.conns[name]; held {
		return false, nil
	}

	conn, err := d.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if database.IsPostgres(d.driver) {
		acquired, err = d.getPostgresLock(ctx, conn, name)
	} else {
		acquired, err = d.getMySQLLock(ctx, conn, name)
	}
	if err != nil || !acquired {
		conn.Close()
		return false, err
	}
	d.conns[name] = conn
	return true, nil
}

// ReleaseLock releases the lock. Releasing a lock this provider does not
// hold is a no-op.
func (d *DatabaseLockProvider) ReleaseLock(ctx context.Context, name string) error {
	if d.isSQLite() {
		_, err := d.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE name = ?", d.table), name)
		return err
	}

	d.mu.Lock()
	conn, held := d.conns[name]
	delete(d.conns, name)
	d.mu.Unlock()
	if !held {
		return nil
	}
	defer conn.Close()

	if database.IsPostgres(d.driver) {
		return d.releasePostgresLock(ctx, conn, name)
	}
	return d.releaseMySQLLock(ctx, conn, name)
}

// MySQL Implementation using GET_LOCK
func (d *DatabaseLockProvider) getMySQLLock(ctx context.Context, conn *sql.Conn, name string) (bool, error) {
	// GET_LOCK(str, timeout) returns 1 if success, 0 if timeout, NULL if error.
	// Timeout 0 returns immediately.
	var result sql.NullInt64
	err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 0)", name).Scan(&result)
	if err != nil {
		return false, err
	}
	if !result.Valid {
		return false, fmt.Errorf("GET_LOCK returned NULL")
	}
	return result.Int64 == 1, nil
}

func (d *DatabaseLockProvider) releaseMySQLLock(ctx context.Context, conn *sql.Conn, name string) error {
	var result sql.NullInt64
	return conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", name).Scan(&result)
}

// Postgres Implementation using Advisory Locks
func (d *DatabaseLockProvider) getPostgresLock(ctx context.Context, conn *sql.Conn, name string) (bool, error) {
	var success bool
	err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", d.hashName(name)).Scan(&success)
	if err != nil {
		return false, err
	}
	return success, nil
}

func (d *DatabaseLockProvider) releasePostgresLock(ctx context.Context, conn *sql.Conn, name string) error {
	var success bool
	return conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", d.hashName(name)).Scan(&success)
}

// SQLite has no named locks: a row per lock, expired rows are reclaimed
func (d *DatabaseLockProvider) getSQLiteLock(ctx context.Context, name string, duration time.Duration) (bool, error) {
	now := d.now()
	if _, err := d.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE name = ? AND expires_at < ?", d.table),
		name, now.UnixMilli()); err != nil {
		return false, err
	}
	res, err := d.db.ExecContext(ctx,
		fmt.Sprintf("INSERT OR IGNORE INTO %s (name, expires_at) VALUES (?, ?)", d.table),
		name, now.Add(duration).UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (d *DatabaseLockProvider) hashName(name string) int64 {
	// pg_advisory_lock takes bigint
	return int64(crc32.ChecksumIEEE([]byte(name)))
}
