// Package audit records actions the sync worker gave up on.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agrione/offline-sync/pkg/database"
	"github.com/agrione/offline-sync/pkg/queue"
)

// DatabaseRecorder implements queue.DroppedRecorder using a SQL table
type DatabaseRecorder struct {
	db     *sql.DB
	table  string
	driver string
	now    func() time.Time
}

// NewDatabaseRecorder creates a new recorder
func NewDatabaseRecorder(db *sql.DB, tableName string, driver string) *DatabaseRecorder {
	if tableName == "" {
		tableName = "dropped_actions"
	}
	return &DatabaseRecorder{
		db:     db,
		table:  tableName,
		driver: driver,
		now:    time.Now,
	}
}

// Migrate creates the table if it does not exist
func (p *DatabaseRecorder) Migrate(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	switch {
	case database.IsPostgres(p.driver):
		idColumn = "id BIGSERIAL PRIMARY KEY"
	case p.driver == "mysql":
		idColumn = "id BIGINT AUTO_INCREMENT PRIMARY KEY"
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s,
		action_id VARCHAR(64) NOT NULL,
		action_type VARCHAR(64) NOT NULL,
		payload TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		reason TEXT NOT NULL,
		enqueued_at BIGINT NOT NULL,
		dropped_at BIGINT NOT NULL
	)`, p.table, idColumn)
	_, err := p.db.ExecContext(ctx, query)
	return err
}

// Record stores a dropped action
func (p *DatabaseRecorder) Record(ctx context.Context, action queue.QueuedAction, reason string) error {
	query := database.Rebind(p.driver, `
		INSERT INTO `+p.table+` (action_id, action_type, payload, attempts, reason, enqueued_at, dropped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := p.db.ExecContext(ctx, query,
		action.ID,
		action.Type,
		string(action.Payload),
		action.AttemptCount,
		reason,
		action.EnqueuedAt.UnixMilli(),
		p.now().UnixMilli(),
	)
	return err
}
