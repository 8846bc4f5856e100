package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultBusyTimeout bounds how long a connection waits on a locked database
// before the driver reports SQLITE_BUSY.
const DefaultBusyTimeout = 5 * time.Second

// Options control how the SQLite database is opened.
type Options struct {
	Path        string
	BusyTimeout time.Duration
	// SkipFilesystemCheck disables the network filesystem guard (tests only).
	SkipFilesystemCheck bool
}

// OpenSQLite opens (and creates if needed) the SQLite database and ensures the
// messages schema exists. Pragmas are set through the DSN so that every pooled
// connection carries them, not only the first one.
func OpenSQLite(ctx context.Context, opts Options) (*sql.DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}
	if !opts.SkipFilesystemCheck {
		if err := checkLocalFilesystem(opts.Path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn(opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := BootstrapSQLite(pctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func dsn(opts Options) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + opts.Path + "?" + q.Encode()
}

// BootstrapSQLite creates the messages table and its indexes if missing.
// message_id is the primary key; it is the only uniqueness the service relies on.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
  message_id  TEXT PRIMARY KEY,
  from_msisdn TEXT NOT NULL,
  to_msisdn   TEXT NOT NULL,
  ts          TEXT NOT NULL,
  text        TEXT NOT NULL,
  received_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS messages_ts_idx ON messages(ts, message_id);`,
		`CREATE INDEX IF NOT EXISTS messages_from_idx ON messages(from_msisdn);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}

// SchemaReady reports whether the messages table exists.
func SchemaReady(ctx context.Context, db *sql.DB) error {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='messages';").Scan(&name)
	if err != nil {
		return fmt.Errorf("messages table missing: %w", err)
	}
	return nil
}
