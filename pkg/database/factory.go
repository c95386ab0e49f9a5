package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agrione/offline-sync/pkg/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Factory creates database connections
type Factory struct {
	dataDir string
}

// NewFactory creates a new Factory. dataDir holds the sqlite file when no path is configured.
func NewFactory(dataDir string) *Factory {
	return &Factory{dataDir: dataDir}
}

// DriverName maps a configured connection to the database/sql driver name
func DriverName(connection string) (string, error) {
	switch connection {
	case "sqlite", "sqlite3", "":
		return "sqlite", nil
	case "mysql":
		return "mysql", nil
	case "pgsql", "postgres":
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported database connection: %s", connection)
	}
}

// Connect creates a new database connection based on configuration
func (f *Factory) Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	driverName, err := DriverName(cfg.Connection)
	if err != nil {
		return nil, err
	}

	var dsn string
	switch driverName {
	case "sqlite":
		dsn, err = f.sqlitePath(cfg)
		if err != nil {
			return nil, err
		}
	case "mysql":
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=Local",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	case "postgres":
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if driverName == "sqlite" {
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func (f *Factory) sqlitePath(cfg config.DatabaseConfig) (string, error) {
	if cfg.Path == ":memory:" {
		return cfg.Path, nil
	}
	path := cfg.Path
	if path == "" {
		path = filepath.Join(f.dataDir, "agrione.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return path, nil
}
