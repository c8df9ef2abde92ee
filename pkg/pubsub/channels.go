package pubsub

import "fmt"

// ChannelRelayToArchive carries lifecycle events for a single broadcaster,
// keyed by its connection ID.
const ChannelRelayToArchive = "relay:room:%s:to_archive"

// Lifecycle event types published by the relay.
const (
	EventStreamStarted    = "stream_started"
	EventStreamEnded      = "stream_ended"
	EventRecordingStarted = "recording_started"
	EventRecordingSaved   = "recording_saved"
	EventRecordingFailed  = "recording_failed"
)

// RelayToArchiveChannel returns the channel name for a broadcaster's events.
func RelayToArchiveChannel(roomID string) string {
	return fmt.Sprintf(ChannelRelayToArchive, roomID)
}

// StreamPayload accompanies stream_started and stream_ended.
type StreamPayload struct {
	ConnectionID string `json:"connection_id"`
	StartedAt    int64  `json:"started_at"`
}

// RecordingPayload accompanies the recording_* events.
type RecordingPayload struct {
	ConnectionID string  `json:"connection_id"`
	Filename     string  `json:"filename"`
	Size         int64   `json:"size,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	URL          string  `json:"url,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}
