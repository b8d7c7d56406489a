package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/state"
)

var testKey = state.Key{Workflow: "wf-1", Node: "abandoned"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestStore_LoadMissingCursor(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT last_poll_time, next_poll_at FROM node_cursors").
		WithArgs("wf-1", "abandoned").
		WillReturnError(sql.ErrNoRows)

	cur, err := store.Load(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, cur.LastPollTime.IsZero())
	assert.Empty(t, cur.ProcessedIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Load(t *testing.T) {
	store, mock := newMockStore(t)
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT last_poll_time, next_poll_at FROM node_cursors").
		WithArgs("wf-1", "abandoned").
		WillReturnRows(sqlmock.NewRows([]string{"last_poll_time", "next_poll_at"}).AddRow(last, nil))
	mock.ExpectQuery("SELECT record_id FROM node_processed_ids").
		WithArgs("wf-1", "abandoned").
		WillReturnRows(sqlmock.NewRows([]string{"record_id"}).AddRow("a").AddRow("b"))

	cur, err := store.Load(context.Background(), testKey)
	require.NoError(t, err)
	assert.True(t, cur.LastPollTime.Equal(last))
	assert.True(t, cur.NextPollAt.IsZero())
	assert.Equal(t, map[string]bool{"a": true, "b": true}, cur.ProcessedIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadQueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT last_poll_time, next_poll_at FROM node_cursors").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Load(context.Background(), testKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query cursor wf-1/abandoned")
}

func TestStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO node_cursors").
		WithArgs("wf-1", "abandoned", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO node_processed_ids").
		WithArgs("wf-1", "abandoned", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := store.Save(context.Background(), testKey, donation.Cursor{
		LastPollTime: now,
		NextPollAt:   now.Add(time.Minute),
		ProcessedIDs: map[string]bool{"a": true, "b": true},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveWithoutIDsSkipsInsert(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO node_cursors").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Save(context.Background(), testKey, donation.Cursor{NextPollAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO node_cursors").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), testKey, donation.Cursor{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert cursor")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS node_cursors").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
