package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattjoyce/inlet/internal/message"
)

//go:generate mockgen -destination=mocks/mock_webhook.go -package=mocks github.com/mattjoyce/inlet/internal/webhook MessageStore,Counter

// MessageStore is the write contract the coordinator needs from storage.
type MessageStore interface {
	InsertIfAbsent(ctx context.Context, m message.Message) (message.InsertResult, error)
}

// Counter receives one increment per handled webhook, labelled with the
// terminal outcome. Implementations must not block.
type Counter interface {
	Increment(result string)
}

// Outcome is the terminal state of one webhook delivery.
type Outcome string

const (
	OutcomeStored               Outcome = "stored"
	OutcomeDeduplicated         Outcome = "deduplicated"
	OutcomeRejectedBadSignature Outcome = "rejected_bad_signature"
	OutcomeRejectedBadPayload   Outcome = "rejected_bad_payload"
	OutcomeStorageError         Outcome = "storage_error"
)

// Accepted reports whether the sender should consider the delivery done.
// A duplicate is accepted: redelivery of a known message is not a failure.
func (o Outcome) Accepted() bool {
	return o == OutcomeStored || o == OutcomeDeduplicated
}

// Result is what Handle decided for one delivery.
type Result struct {
	Outcome Outcome
	// Message is set once the payload parsed, whatever happened afterwards.
	Message message.Message
	// Err explains rejections and storage failures. It is nil on success.
	Err error
}

// DefaultStoreTimeout bounds a single insert.
const DefaultStoreTimeout = 5 * time.Second

// Coordinator runs the ingestion pipeline: verify, parse, insert-if-absent,
// classify. It holds no per-message state; the store owns durability.
type Coordinator struct {
	secret       string
	storeTimeout time.Duration
	store        MessageStore
	counter      Counter
	logger       *slog.Logger
}

// NewCoordinator builds a Coordinator. counter may be nil.
func NewCoordinator(cfg Config, store MessageStore, counter Counter, logger *slog.Logger) *Coordinator {
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		secret:       cfg.Secret,
		storeTimeout: timeout,
		store:        store,
		counter:      counter,
		logger:       logger,
	}
}

// Handle processes one delivery. The signature is checked before the body is
// parsed or the store is touched, so callers without the secret can neither
// probe validation nor cause writes.
//
// The insert runs detached from ctx cancellation: a client hanging up does not
// abort an atomic insert that is already on its way. It is still bounded by the
// store timeout.
func (c *Coordinator) Handle(ctx context.Context, body []byte, signature string) (res Result) {
	defer func() { c.count(res.Outcome) }()

	if err := VerifySignature(body, signature, c.secret); err != nil {
		return Result{Outcome: OutcomeRejectedBadSignature, Err: err}
	}

	msg, err := ParsePayload(body)
	if err != nil {
		return Result{Outcome: OutcomeRejectedBadPayload, Err: err}
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.storeTimeout)
	defer cancel()

	inserted, err := c.store.InsertIfAbsent(sctx, msg)
	if err != nil {
		if !errors.Is(err, message.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %w", message.ErrStorageUnavailable, err)
		}
		return Result{Outcome: OutcomeStorageError, Message: msg, Err: err}
	}

	switch inserted {
	case message.InsertResultInserted:
		return Result{Outcome: OutcomeStored, Message: msg}
	case message.InsertResultDuplicate:
		return Result{Outcome: OutcomeDeduplicated, Message: msg}
	default:
		return Result{
			Outcome: OutcomeStorageError,
			Message: msg,
			Err:     fmt.Errorf("%w: unexpected insert result %v", message.ErrStorageUnavailable, inserted),
		}
	}
}

// count never lets a metrics failure reach the caller.
func (c *Coordinator) count(o Outcome) {
	if c.counter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("metrics increment panicked", "outcome", string(o), "panic", r)
		}
	}()
	c.counter.Increment(string(o))
}
