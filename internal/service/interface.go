package service

import (
	"context"

	"github.com/weiawesome/wes-io-relay/internal/domain"
	"github.com/weiawesome/wes-io-relay/internal/hub"
)

// RelayService handles signals from connected clients.
type RelayService interface {
	// HandleConnect registers a new connection as live and joins it to its own room.
	HandleConnect(ctx context.Context, client *hub.Client) error

	// HandleStartRecording opens a recording for the client.
	HandleStartRecording(ctx context.Context, client *hub.Client) error

	// HandleVideoChunk records a fragment and fans it out to the client's room.
	HandleVideoChunk(ctx context.Context, client *hub.Client, data []byte, isFirstFragment bool) error

	// HandleStopRecording finalizes the client's recording.
	HandleStopRecording(ctx context.Context, client *hub.Client) error

	// HandleJoinRoom subscribes the client to a room.
	HandleJoinRoom(ctx context.Context, client *hub.Client, roomID string) error

	// HandleLeaveRoom unsubscribes the client from a room.
	HandleLeaveRoom(ctx context.Context, client *hub.Client, roomID string) error

	// HandleChatMessage relays text to every member of a room.
	HandleChatMessage(ctx context.Context, client *hub.Client, roomID, text string) error

	// HandleDisconnect stops any recording and removes the live session.
	HandleDisconnect(ctx context.Context, client *hub.Client) error

	// LiveStreams lists the live sessions.
	LiveStreams(ctx context.Context) ([]domain.LiveSession, error)
}
