package webhook

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mattjoyce/inlet/internal/message"
)

const maxTextRunes = 4096

var msisdnPattern = regexp.MustCompile(`^\+[0-9]{1,15}$`)

// Payload is the wire shape of an inbound webhook body.
type Payload struct {
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	TS        string `json:"ts"`
	Text      string `json:"text"`
}

// Validate checks that every field is present and well formed. ts must be
// RFC 3339; it is kept as the caller sent it.
func (p Payload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MessageID, validation.Required, validation.Length(1, 256)),
		validation.Field(&p.From, validation.Required, validation.Match(msisdnPattern).Error("must be + followed by digits")),
		validation.Field(&p.To, validation.Required, validation.Match(msisdnPattern).Error("must be + followed by digits")),
		validation.Field(&p.TS, validation.Required, validation.Date(time.RFC3339).Error("must be an ISO-8601 timestamp")),
		validation.Field(&p.Text, validation.Required, validation.RuneLength(1, maxTextRunes)),
	)
}

// PayloadError describes why a body was refused. Fields maps JSON field
// names to a human-readable reason.
type PayloadError struct {
	Fields map[string]string
}

func (e *PayloadError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid payload"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

// ParsePayload decodes and validates a webhook body into a Message.
// Any failure is a *PayloadError.
func ParsePayload(body []byte) (message.Message, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return message.Message{}, &PayloadError{Fields: map[string]string{"body": "must be a JSON object with string fields"}}
	}

	if err := p.Validate(); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for name, ferr := range verrs {
				fields[name] = ferr.Error()
			}
			return message.Message{}, &PayloadError{Fields: fields}
		}
		return message.Message{}, &PayloadError{Fields: map[string]string{"body": err.Error()}}
	}

	return message.Message{
		MessageID: p.MessageID,
		From:      p.From,
		To:        p.To,
		TS:        p.TS,
		Text:      p.Text,
	}, nil
}
