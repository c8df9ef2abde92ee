package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicFor(t *testing.T) {
	topic, key, err := topicFor(RelayToArchiveChannel("abc123"))
	require.NoError(t, err)
	assert.Equal(t, "relay-to-archive", topic)
	assert.Equal(t, "abc123", key)

	for _, bad := range []string{"relay:abc:to_archive", "relay:rooms:x:to_archive", "relay:room::to_archive", "relay:room:x:archive"} {
		_, _, err := topicFor(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewEventPayload(t *testing.T) {
	ev, err := NewEvent(EventRecordingSaved, "conn-1", RecordingPayload{
		ConnectionID: "conn-1",
		Filename:     "recording_conn-1_1700000000000.webm",
		Size:         100,
	})
	require.NoError(t, err)
	assert.Equal(t, EventRecordingSaved, ev.Type)
	assert.Equal(t, "conn-1", ev.StreamID)
	assert.NotEmpty(t, ev.ID)
	assert.NotZero(t, ev.OccurredAt)

	var p RecordingPayload
	require.NoError(t, ev.Decode(&p))
	assert.Equal(t, int64(100), p.Size)
}

func TestNewPublisherDrivers(t *testing.T) {
	p, err := NewPublisher(Config{Driver: DriverNone})
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), RelayToArchiveChannel("x"), &Event{}))
	assert.NoError(t, p.Close())

	_, err = NewPublisher(Config{Driver: "nats"})
	assert.Error(t, err)
}

func TestEventWithoutPayload(t *testing.T) {
	ev, err := NewEvent(EventStreamEnded, "conn-1", nil)
	require.NoError(t, err)

	data, err := ev.encode()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "payload")
}
