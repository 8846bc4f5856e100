package webhook

import "time"

// Config holds ingestion settings. The secret is fixed for the process lifetime.
type Config struct {
	// Secret keys the HMAC-SHA256 signature.
	Secret string

	// SignatureHeader carries the hex signature (default: X-Signature).
	SignatureHeader string

	// MaxBodySize is the largest accepted body in bytes (default: 64KB).
	MaxBodySize int64

	// StoreTimeout bounds each insert (default: 5s).
	StoreTimeout time.Duration
}

// AcceptedResponse is returned for stored and deduplicated deliveries.
type AcceptedResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// ErrorResponse is the JSON body for every rejected delivery.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// Default values
const (
	DefaultMaxBodySize     = 64 * 1024
	DefaultSignatureHeader = "X-Signature"
)

// Event types published after a delivery is accepted.
const (
	EventMessageStored    = "message.stored"
	EventMessageDuplicate = "message.duplicate"
)
