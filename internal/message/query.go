package message

import (
	"context"
	"fmt"
	"strings"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// List returns one page of messages matching f, ordered by ts then message_id.
// Total counts every matching row, ignoring Limit and Offset.
func (s *Store) List(ctx context.Context, f Filter) (Page, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where, args := f.where()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages"+where+";", args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("%w: count filtered messages: %w", ErrStorageUnavailable, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT message_id, from_msisdn, to_msisdn, ts, text, received_at
FROM messages`+where+`
ORDER BY ts ASC, message_id ASC
LIMIT ? OFFSET ?;
`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return Page{}, fmt.Errorf("%w: list messages: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	page := Page{
		Data:   make([]Message, 0, f.Limit),
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return Page{}, fmt.Errorf("%w: scan message: %w", ErrStorageUnavailable, err)
		}
		page.Data = append(page.Data, *m)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("%w: iterate messages: %w", ErrStorageUnavailable, err)
	}
	return page, nil
}

func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.From != "" {
		conds = append(conds, "from_msisdn = ?")
		args = append(args, f.From)
	}
	if f.Since != "" {
		conds = append(conds, "ts >= ?")
		args = append(args, f.Since)
	}
	if f.Q != "" {
		// LIKE is case-insensitive for ASCII in SQLite.
		conds = append(conds, `text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(f.Q)+"%")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
