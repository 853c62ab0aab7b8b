// Package ledger persists which messages have been processed. The mailbox's
// seen flag already prevents most reprocessing; the ledger survives mailbox
// resets and flag loss, making message handling idempotent end to end.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_messages (
	message_id   TEXT PRIMARY KEY,
	disposition  TEXT NOT NULL,
	company_name TEXT NOT NULL DEFAULT '',
	processed_at TEXT NOT NULL
);
`

// Dispositions recorded per message.
const (
	DispositionProcessed = "processed"
	DispositionSkipped   = "skipped"
	DispositionFailed    = "failed"
)

type Ledger struct {
	db *sqlx.DB
}

func Open(path string) (*Ledger, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Seen reports whether the message id was already recorded.
func (l *Ledger) Seen(ctx context.Context, messageID string) (bool, error) {
	var one int
	err := l.db.GetContext(ctx, &one,
		"SELECT 1 FROM processed_messages WHERE message_id = ?", messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return true, nil
}

// Record stores the message's disposition. Re-recording the same id keeps the
// first entry.
func (l *Ledger) Record(ctx context.Context, messageID, disposition, companyName string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO processed_messages (message_id, disposition, company_name, processed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (message_id) DO NOTHING`,
		messageID, disposition, companyName, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}
	return nil
}
