package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattjoyce/inlet/internal/storage"
)

// Store owns the messages table. It is safe for concurrent use; uniqueness of
// message_id is enforced by the database, never by callers.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// InsertIfAbsent stores m unless a row with the same message_id exists.
//
// The conflict check and the write are one statement, so concurrent callers
// with the same message_id see exactly one InsertResultInserted. Duplicates
// leave the stored row untouched, including received_at.
func (s *Store) InsertIfAbsent(ctx context.Context, m Message) (InsertResult, error) {
	if m.MessageID == "" {
		return 0, ErrEmptyMessageID
	}

	receivedAt := s.now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
INSERT INTO messages(message_id, from_msisdn, to_msisdn, ts, text, received_at)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(message_id) DO NOTHING;
`, m.MessageID, m.From, m.To, m.TS, m.Text, receivedAt)
	if err != nil {
		return 0, fmt.Errorf("%w: insert message: %w", ErrStorageUnavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %w", ErrStorageUnavailable, err)
	}
	if n == 0 {
		return InsertResultDuplicate, nil
	}
	return InsertResultInserted, nil
}

// Get returns the stored message, or (nil, nil) when it does not exist.
func (s *Store) Get(ctx context.Context, messageID string) (*Message, error) {
	if messageID == "" {
		return nil, ErrEmptyMessageID
	}
	row := s.db.QueryRowContext(ctx, `
SELECT message_id, from_msisdn, to_msisdn, ts, text, received_at
FROM messages
WHERE message_id = ?;
`, messageID)

	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get message: %w", ErrStorageUnavailable, err)
	}
	return m, nil
}

// Count returns the number of stored messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages;").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count messages: %w", ErrStorageUnavailable, err)
	}
	return n, nil
}

// Ready checks that the database answers and the schema is in place.
func (s *Store) Ready(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorageUnavailable, err)
	}
	if err := storage.SchemaReady(ctx, s.db); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var (
		m           Message
		receivedAtS string
	)
	if err := row.Scan(&m.MessageID, &m.From, &m.To, &m.TS, &m.Text, &receivedAtS); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339Nano, receivedAtS); err == nil {
		m.ReceivedAt = t
	}
	return &m, nil
}
