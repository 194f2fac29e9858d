// Package eventlogger records audit events. Recording is best effort: the
// caller hands an event to a Worker and never waits for, or fails because
// of, the write.
package eventlogger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	MetadataUserID      = "user_id"
	MetadataHouseholdID = "household_id"
)

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

// WithHousehold tags the event with the tenant it happened in.
func WithHousehold(householdID uuid.UUID) EventOption {
	return func(e *Event) {
		e.Metadata[MetadataHouseholdID] = householdID.String()
	}
}

func WithUser(userID uuid.UUID) EventOption {
	return func(e *Event) {
		if userID != uuid.Nil {
			e.Metadata[MetadataUserID] = userID.String()
		}
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// DecodeData unmarshals the raw payload of an event read back from storage.
func (e Event) DecodeData(v any) error {
	raw, ok := e.Data.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(e.Data)
		if err != nil {
			return err
		}
		raw = b
	}
	return json.Unmarshal(raw, v)
}

type EventLogger interface {
	Save(ctx context.Context, e Event) error
	GetByType(ctx context.Context, eventType string) ([]Event, error)
}

// Auditor accepts events without blocking the caller.
type Auditor interface {
	Log(event Event)
}

// Discard drops every event.
var Discard Auditor = discard{}

type discard struct{}

func (discard) Log(Event) {}
