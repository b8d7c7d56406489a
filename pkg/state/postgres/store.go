// Package postgres stores donation cursors in PostgreSQL.
//
// The cursor row and the processed-id set live in separate tables so that
// the set can grow without rewriting a single large value on every poll.
package postgres

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/friendsofgo/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/state"
)

var _ state.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS node_cursors (
	workflow_id    TEXT NOT NULL,
	node_id        TEXT NOT NULL,
	last_poll_time TIMESTAMPTZ,
	next_poll_at   TIMESTAMPTZ,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (workflow_id, node_id)
);

CREATE TABLE IF NOT EXISTS node_processed_ids (
	workflow_id TEXT NOT NULL,
	node_id     TEXT NOT NULL,
	record_id   TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (workflow_id, node_id, record_id)
);
`

// Store implements state.Store on database/sql.
type Store struct {
	db *sql.DB
}

// Open connects through the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}

// New creates a Store. The caller owns db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the cursor tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "migrate cursor tables")
	}
	return nil
}

// Load retrieves the cursor and processed ids for key
func (s *Store) Load(ctx context.Context, key state.Key) (donation.Cursor, error) {
	cur := donation.Cursor{ProcessedIDs: map[string]bool{}}

	query := `
		SELECT last_poll_time, next_poll_at
		FROM node_cursors
		WHERE workflow_id = $1 AND node_id = $2
	`

	var last, next null.Time
	err := s.db.QueryRowContext(ctx, query, key.Workflow, key.Node).Scan(&last, &next)
	if err == sql.ErrNoRows {
		return cur, nil
	}
	if err != nil {
		return cur, errors.Wrapf(err, "query cursor %s", key)
	}
	cur.LastPollTime = timeOrZero(last)
	cur.NextPollAt = timeOrZero(next)

	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id
		FROM node_processed_ids
		WHERE workflow_id = $1 AND node_id = $2
	`, key.Workflow, key.Node)
	if err != nil {
		return cur, errors.Wrapf(err, "query processed ids %s", key)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return cur, errors.Wrapf(err, "scan processed id %s", key)
		}
		cur.ProcessedIDs[id] = true
	}
	if err := rows.Err(); err != nil {
		return cur, errors.Wrapf(err, "iterate processed ids %s", key)
	}

	return cur, nil
}

// Save upserts the cursor row and inserts any processed ids not yet stored.
// Existing ids are never deleted.
func (s *Store) Save(ctx context.Context, key state.Key, cur donation.Cursor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin save %s", key)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO node_cursors (workflow_id, node_id, last_poll_time, next_poll_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (workflow_id, node_id) DO UPDATE
		SET last_poll_time = EXCLUDED.last_poll_time,
		    next_poll_at = EXCLUDED.next_poll_at,
		    updated_at = now()
	`, key.Workflow, key.Node, nullTime(cur.LastPollTime), nullTime(cur.NextPollAt))
	if err != nil {
		return errors.Wrapf(err, "upsert cursor %s", key)
	}

	if len(cur.ProcessedIDs) > 0 {
		ids := make([]string, 0, len(cur.ProcessedIDs))
		for id := range cur.ProcessedIDs {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO node_processed_ids (workflow_id, node_id, record_id)
			SELECT $1, $2, unnest($3::text[])
			ON CONFLICT DO NOTHING
		`, key.Workflow, key.Node, pq.Array(ids))
		if err != nil {
			return errors.Wrapf(err, "insert processed ids %s", key)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit save %s", key)
	}
	return nil
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

func timeOrZero(t null.Time) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
