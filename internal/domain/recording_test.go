package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordingFilenameRoundTrip(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	name := RecordingFilename("abc-def", at, ".webm")
	assert.Equal(t, "recording_abc-def_1700000000123.webm", name)

	ms, ok := ParseRecordingTimestamp(name)
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000123), ms)
}

func TestParseRecordingTimestampRejects(t *testing.T) {
	for _, name := range []string{"clip.webm", "recording_abc.webm", "recording_abc_12x.webm", "recording_abc_123"} {
		_, ok := ParseRecordingTimestamp(name)
		assert.False(t, ok, name)
	}
}
