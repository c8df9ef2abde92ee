package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FinalizedRecording is the outcome of closing a recording.
type FinalizedRecording struct {
	ConnectionID string
	Filename     string
	Size         int64
	Duration     float64 // seconds
	URL          string  // empty for local recordings
	CreatedAt    time.Time
}

// RecordingFilename builds recording_<connID>_<unixMillis>.<ext>.
func RecordingFilename(connID string, t time.Time, ext string) string {
	return fmt.Sprintf("recording_%s_%d.%s", connID, t.UnixMilli(), strings.TrimPrefix(ext, "."))
}

var trailingMillis = regexp.MustCompile(`_(\d+)\.[^.]+$`)

// ParseRecordingTimestamp returns the unix millis embedded before the extension.
func ParseRecordingTimestamp(filename string) (int64, bool) {
	m := trailingMillis.FindStringSubmatch(filename)
	if m == nil {
		return 0, false
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}
