package domain

import "time"

// LiveSession marks a connection as live. One exists per open connection.
type LiveSession struct {
	ConnectionID string `json:"connectionId"`
	StartedAt    int64  `json:"startedAt"` // unix millis
}

// NewLiveSession creates a session starting now.
func NewLiveSession(connID string) *LiveSession {
	return &LiveSession{
		ConnectionID: connID,
		StartedAt:    time.Now().UnixMilli(),
	}
}
