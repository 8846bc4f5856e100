package message

import (
	"errors"
	"time"
)

// Message is an ingested webhook message. Rows are immutable once stored.
type Message struct {
	MessageID  string    `json:"message_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	TS         string    `json:"ts"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// InsertResult is the outcome of an InsertIfAbsent call.
type InsertResult int

const (
	// InsertResultInserted means this call created the row.
	InsertResultInserted InsertResult = iota + 1
	// InsertResultDuplicate means a row with the same message_id already existed.
	InsertResultDuplicate
)

func (r InsertResult) String() string {
	switch r {
	case InsertResultInserted:
		return "inserted"
	case InsertResultDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyMessageID is returned when a message has no identifier.
	ErrEmptyMessageID = errors.New("message_id is empty")
	// ErrStorageUnavailable wraps every failure of the underlying database.
	// A request failing with it had no effect and is safe to retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Filter selects messages for List.
type Filter struct {
	Limit  int
	Offset int
	// From matches the sender exactly.
	From string
	// Since keeps messages whose ts is >= Since (RFC 3339 text comparison).
	Since string
	// Q is a case-insensitive substring match on text.
	Q string
}

// Page is one page of List results.
type Page struct {
	Data   []Message `json:"data"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// SenderCount is one row of the per-sender breakdown.
type SenderCount struct {
	From  string `json:"from"`
	Count int    `json:"count"`
}

// Stats aggregates the whole store.
type Stats struct {
	TotalMessages     int           `json:"total_messages"`
	SendersCount      int           `json:"senders_count"`
	MessagesPerSender []SenderCount `json:"messages_per_sender"`
	FirstMessageTS    *string       `json:"first_message_ts"`
	LastMessageTS     *string       `json:"last_message_ts"`
}
