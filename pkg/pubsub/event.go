package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one lifecycle notification about a broadcaster. Consumers may
// see an event more than once and should dedupe on ID.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	StreamID   string          `json:"stream_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt int64           `json:"occurred_at"` // unix millis
}

// NewEvent stamps payload with a fresh ID and the current time.
func NewEvent(eventType, streamID string, payload interface{}) (*Event, error) {
	ev := &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		StreamID:   streamID,
		OccurredAt: time.Now().UnixMilli(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		ev.Payload = data
	}
	return ev, nil
}

// Decode reads the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

func (e *Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to a broker channel. Implementations must be
// safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
	Close() error
}
