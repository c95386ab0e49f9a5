package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/agrione/offline-sync/pkg/queue"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func droppedAction() queue.QueuedAction {
	qa := queue.NewQueuedAction(queue.TypeContactDealer, json.RawMessage(`{"dealerId":"d-1"}`), time.UnixMilli(1700000000000))
	qa.AttemptCount = 3
	return qa
}

func TestDatabaseRecorder_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	recorder := NewDatabaseRecorder(db, "", "mysql")
	recorder.now = func() time.Time { return time.UnixMilli(1700000005000) }
	action := droppedAction()

	mock.ExpectExec("INSERT INTO dropped_actions").
		WithArgs(action.ID, queue.TypeContactDealer, `{"dealerId":"d-1"}`, int64(3), "failed after 3 attempts", int64(1700000000000), int64(1700000005000)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, recorder.Record(context.Background(), action, "failed after 3 attempts"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseRecorder_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	recorder := NewDatabaseRecorder(db, "audit_drops", "pgsql")

	mock.ExpectExec(`INSERT INTO audit_drops .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)`).
		WillReturnError(errors.New("connection refused"))

	assert.Error(t, recorder.Record(context.Background(), droppedAction(), "reason"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseRecorder_Migrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS dropped_actions").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewDatabaseRecorder(db, "", "sqlite").Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRecorder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	recorder := NewRedisRecorder(db, "agrione-sync-queue")
	droppedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	recorder.now = func() time.Time { return droppedAt }
	action := droppedAction()

	body, err := json.Marshal(Entry{Action: action, Reason: "503", DroppedAt: droppedAt})
	require.NoError(t, err)

	mock.ExpectRPush("agrione-sync-queue:dropped", body).SetVal(1)
	require.NoError(t, recorder.Record(context.Background(), action, "503"))

	mock.ExpectLRange("agrione-sync-queue:dropped", 0, -1).SetVal([]string{string(body)})
	entries, err := recorder.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, action.ID, entries[0].Action.ID)
	assert.Equal(t, 3, entries[0].Action.AttemptCount)
	assert.Equal(t, "503", entries[0].Reason)

	assert.NoError(t, mock.ExpectationsWereMet())
}
