package message

import (
	"context"
	"database/sql"
	"fmt"
)

const topSenders = 10

// Stats aggregates totals, the busiest senders and the ts range.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		st          Stats
		first, last sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*), COUNT(DISTINCT from_msisdn), MIN(ts), MAX(ts)
FROM messages;
`).Scan(&st.TotalMessages, &st.SendersCount, &first, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: aggregate messages: %w", ErrStorageUnavailable, err)
	}
	if first.Valid {
		st.FirstMessageTS = &first.String
	}
	if last.Valid {
		st.LastMessageTS = &last.String
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT from_msisdn, COUNT(*) AS n
FROM messages
GROUP BY from_msisdn
ORDER BY n DESC, from_msisdn ASC
LIMIT ?;
`, topSenders)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: messages per sender: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	st.MessagesPerSender = make([]SenderCount, 0, topSenders)
	for rows.Next() {
		var sc SenderCount
		if err := rows.Scan(&sc.From, &sc.Count); err != nil {
			return Stats{}, fmt.Errorf("%w: scan sender count: %w", ErrStorageUnavailable, err)
		}
		st.MessagesPerSender = append(st.MessagesPerSender, sc)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("%w: iterate sender counts: %w", ErrStorageUnavailable, err)
	}
	return st, nil
}
