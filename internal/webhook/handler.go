package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Publisher fans accepted deliveries out to live subscribers.
type Publisher interface {
	Publish(eventType string, data any)
}

// Handler is the HTTP face of the Coordinator.
type Handler struct {
	config      Config
	coordinator *Coordinator
	publisher   Publisher
	logger      *slog.Logger
}

// NewHandler creates the webhook HTTP handler. publisher may be nil.
func NewHandler(config Config, coordinator *Coordinator, publisher Publisher, logger *slog.Logger) *Handler {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:      config,
		coordinator: coordinator,
		publisher:   publisher,
		logger:      logger,
	}
}

// ServeHTTP handles POST deliveries. Every outcome maps to exactly one status:
//
//	stored, deduplicated   -> 200
//	rejected_bad_signature -> 401
//	rejected_bad_payload   -> 422
//	storage_error          -> 503
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", middleware.GetReqID(r.Context()))

	body, err := io.ReadAll(io.LimitReader(r.Body, h.config.MaxBodySize+1))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}
	if int64(len(body)) > h.config.MaxBodySize {
		respondJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "payload too large"})
		return
	}

	res := h.coordinator.Handle(r.Context(), body, r.Header.Get(h.config.SignatureHeader))

	switch res.Outcome {
	case OutcomeRejectedBadSignature:
		logger.Warn("webhook signature rejected",
			"result", string(res.Outcome),
			"signature_present", r.Header.Get(h.config.SignatureHeader) != "",
		)
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})

	case OutcomeRejectedBadPayload:
		resp := ErrorResponse{Error: "invalid payload"}
		var perr *PayloadError
		if errors.As(res.Err, &perr) {
			resp.Details = perr.Fields
		}
		logger.Warn("webhook payload rejected", "result", string(res.Outcome), "error", res.Err)
		respondJSON(w, http.StatusUnprocessableEntity, resp)

	case OutcomeStorageError:
		logger.Error("webhook storage failure",
			"result", string(res.Outcome),
			"message_id", res.Message.MessageID,
			"error", res.Err,
		)
		w.Header().Set("Retry-After", "1")
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "storage unavailable"})

	case OutcomeStored, OutcomeDeduplicated:
		dup := res.Outcome == OutcomeDeduplicated
		logger.Info("webhook processed",
			"result", string(res.Outcome),
			"message_id", res.Message.MessageID,
			"dup", dup,
		)
		h.publish(res)
		respondJSON(w, http.StatusOK, AcceptedResponse{Status: "ok", Duplicate: dup})
	}
}

func (h *Handler) publish(res Result) {
	if h.publisher == nil {
		return
	}
	eventType := EventMessageStored
	if res.Outcome == OutcomeDeduplicated {
		eventType = EventMessageDuplicate
	}
	h.publisher.Publish(eventType, map[string]any{
		"at":         time.Now().UTC().Format(time.RFC3339Nano),
		"message_id": res.Message.MessageID,
		"from":       res.Message.From,
		"ts":         res.Message.TS,
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
