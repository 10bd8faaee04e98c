package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// EventLog records pipeline decisions per POI in SQLite so a run can be
// audited after the fact. It satisfies the Recorder interfaces of the merge
// and validate packages.
type EventLog struct {
	db *sql.DB
}

// NewEventLog opens (or creates) the event database and configures WAL mode.
func NewEventLog(dsn string) (*EventLog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open event log")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &EventLog{db: db}, nil
}

const eventsMigration = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	stage      TEXT NOT NULL,
	poi_id     TEXT NOT NULL,
	fields     TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_events_poi_id ON events(poi_id);
CREATE INDEX IF NOT EXISTS idx_events_stage ON events(stage);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
`

func (l *EventLog) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, eventsMigration)
	return eris.Wrap(err, "store: migrate events")
}

func (l *EventLog) Close() error {
	return l.db.Close()
}

// Event is one recorded pipeline decision.
type Event struct {
	ID        string         `json:"id"`
	Stage     string         `json:"stage"`
	POIID     string         `json:"poi_id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
}

// Record appends one event.
func (l *EventLog) Record(ctx context.Context, stage, poiID string, fields map[string]any) error {
	if fields == nil {
		fields = map[string]any{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return eris.Wrap(err, "store: marshal event fields")
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO events (id, stage, poi_id, fields, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), stage, poiID, string(fieldsJSON), time.Now().UTC(),
	)
	return eris.Wrap(err, "store: insert event")
}

// History returns a POI's events oldest-first.
func (l *EventLog) History(ctx context.Context, poiID string) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, stage, poi_id, fields, created_at FROM events
		 WHERE poi_id = ? ORDER BY created_at ASC, id ASC`,
		poiID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: history %s", poiID)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Recent returns the latest events newest-first, optionally filtered by
// stage. limit <= 0 defaults to 100.
func (l *EventLog) Recent(ctx context.Context, stage string, limit int) ([]Event, error) {
	query := `SELECT id, stage, poi_id, fields, created_at FROM events WHERE 1=1`
	var args []any
	if stage != "" {
		query += ` AND stage = ?`
		args = append(args, stage)
	}
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: recent events")
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var e Event
		var fieldsJSON string
		if err := rows.Scan(&e.ID, &e.Stage, &e.POIID, &fieldsJSON, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan event")
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal event fields")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate events")
}
