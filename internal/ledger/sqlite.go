package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS completions (
	signature     TEXT PRIMARY KEY,
	completed     INTEGER NOT NULL,
	completed_at  TEXT NOT NULL,
	success_count INTEGER NOT NULL,
	failure_count INTEGER NOT NULL,
	campaign_ids  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL,
	ts      TEXT NOT NULL,
	level   TEXT NOT NULL,
	message TEXT NOT NULL
);
`

// SQLiteLedger stores completion records and run events in a local SQLite
// file. It also implements EventSink.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the ledger database at path.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply ledger schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) Close() error { return l.db.Close() }

func (l *SQLiteLedger) Get(ctx context.Context, signature string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT signature, completed, completed_at, success_count, failure_count, campaign_ids
		 FROM completions WHERE signature = ?`, signature)

	var (
		entry       Entry
		completed   int
		completedAt string
		idsJSON     string
	)
	err := row.Scan(&entry.Signature, &completed, &completedAt, &entry.SuccessCount, &entry.FailureCount, &idsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger entry: %w", err)
	}

	entry.Completed = completed != 0
	if ts, err := time.Parse(time.RFC3339, completedAt); err == nil {
		entry.CompletedAt = ts
	}
	if err := json.Unmarshal([]byte(idsJSON), &entry.CampaignIDs); err != nil {
		return nil, fmt.Errorf("failed to decode ledger campaign ids: %w", err)
	}

	return &entry, nil
}

// Put records a completion. An existing completed entry wins; later writes
// for the same signature are ignored.
func (l *SQLiteLedger) Put(ctx context.Context, entry Entry) error {
	ids, err := json.Marshal(entry.CampaignIDs)
	if err != nil {
		return fmt.Errorf("failed to encode ledger campaign ids: %w", err)
	}

	completed := 0
	if entry.Completed {
		completed = 1
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO completions(signature, completed, completed_at, success_count, failure_count, campaign_ids)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(signature) DO NOTHING`,
		entry.Signature, completed, entry.CompletedAt.UTC().Format(time.RFC3339),
		entry.SuccessCount, entry.FailureCount, string(ids))
	if err != nil {
		return fmt.Errorf("failed to write ledger entry: %w", err)
	}

	return nil
}

// Delete removes a completion record, letting a caller re-run a batch
// deliberately (the orchestrator itself never deletes).
func (l *SQLiteLedger) Delete(ctx context.Context, signature string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM completions WHERE signature = ?`, signature)
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	return nil
}

// AppendEvent persists one run-log record.
func (l *SQLiteLedger) AppendEvent(ctx context.Context, event Event) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO run_events(run_id, ts, level, message) VALUES (?, ?, ?, ?)`,
		event.RunID, event.Timestamp.UTC().Format(time.RFC3339Nano), event.Level, event.Message)
	if err != nil {
		return fmt.Errorf("failed to append run event: %w", err)
	}
	return nil
}

// Events returns the ordered run-log for one run id.
func (l *SQLiteLedger) Events(ctx context.Context, runID string) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, ts, level, message FROM run_events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read run events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event Event
			ts    string
		)
		if err := rows.Scan(&event.RunID, &ts, &event.Level, &event.Message); err != nil {
			return nil, fmt.Errorf("failed to scan run event: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			event.Timestamp = parsed
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
