package service

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/wes-io-relay/internal/domain"
	"github.com/weiawesome/wes-io-relay/internal/hub"
	"github.com/weiawesome/wes-io-relay/internal/recorder"
	"github.com/weiawesome/wes-io-relay/internal/registry"
	pkglog "github.com/weiawesome/wes-io-relay/pkg/log"
	"github.com/weiawesome/wes-io-relay/pkg/pubsub"
)

const publishTimeout = 5 * time.Second

type relayService struct {
	hub        *hub.Hub
	registry   registry.Registry
	recorder   *recorder.Manager
	publisher  pubsub.Publisher
	chatPrefix string
}

// NewRelayService creates a new RelayService instance.
func NewRelayService(
	h *hub.Hub,
	reg registry.Registry,
	rec *recorder.Manager,
	pub pubsub.Publisher,
	chatPrefix string,
) RelayService {
	if pub == nil {
		pub = pubsub.NopPublisher{}
	}
	return &relayService{
		hub:        h,
		registry:   reg,
		recorder:   rec,
		publisher:  pub,
		chatPrefix: chatPrefix,
	}
}

func (s *relayService) HandleConnect(ctx context.Context, c *hub.Client) error {
	session, err := s.registry.Register(ctx, c.ID)
	if err != nil {
		return err
	}

	// A broadcaster's viewers subscribe to its connection ID.
	s.hub.JoinRoom(c, c.ID)

	s.publish(c.ID, pubsub.EventStreamStarted, pubsub.StreamPayload{
		ConnectionID: c.ID,
		StartedAt:    session.StartedAt,
	})

	return c.SendMessage(&domain.ConnectedMessage{
		Type:         domain.MsgTypeConnected,
		ConnectionID: c.ID,
	})
}

func (s *relayService) HandleStartRecording(ctx context.Context, c *hub.Client) error {
	l := pkglog.ForClient(ctx, c.ID)

	rec, err := s.recorder.Start(c.ID)
	if err != nil {
		if errors.Is(err, recorder.ErrAlreadyRecording) {
			l.Warn().Msg("start-recording while already recording")
			return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeRecordingInProgress, "Recording already in progress"))
		}
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "Unable to start recording"))
		return err
	}

	l.Info().Str(pkglog.FieldFilename, rec.Filename).Msg("recording started")
	s.publish(c.ID, pubsub.EventRecordingStarted, pubsub.RecordingPayload{
		ConnectionID: c.ID,
		Filename:     rec.Filename,
	})

	return c.SendMessage(&domain.RecordingStartedMessage{
		Type:     domain.MsgTypeRecordingStarted,
		Filename: rec.Filename,
	})
}

func (s *relayService) HandleVideoChunk(ctx context.Context, c *hub.Client, data []byte, isFirstFragment bool) error {
	if !s.recorder.Chunk(c.ID, data, isFirstFragment) {
		l := pkglog.ForClient(ctx, c.ID)
		l.Warn().Int(pkglog.FieldSize, len(data)).Msg("video chunk without active recording ignored")
		return nil
	}

	s.hub.BroadcastBinaryToRoom(c.ID, data, "")
	return nil
}

func (s *relayService) HandleStopRecording(ctx context.Context, c *hub.Client) error {
	if !s.recorder.Stop(c.ID, s.onFinalized) {
		l := pkglog.ForClient(ctx, c.ID)
		l.Warn().Err(recorder.ErrNotRecording).Msg("stop-recording ignored")
	}
	return nil
}

func (s *relayService) HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) error {
	if roomID == "" {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "roomId is required"))
	}

	s.hub.JoinRoom(c, roomID)
	return c.SendMessage(&domain.RoomJoinedMessage{
		Type:   domain.MsgTypeRoomJoined,
		RoomID: roomID,
	})
}

func (s *relayService) HandleLeaveRoom(ctx context.Context, c *hub.Client, roomID string) error {
	if roomID == "" {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "roomId is required"))
	}
	s.hub.LeaveRoom(c, roomID)
	return nil
}

func (s *relayService) HandleChatMessage(ctx context.Context, c *hub.Client, roomID, text string) error {
	if roomID == "" {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "roomId is required"))
	}

	return s.hub.BroadcastToRoom(roomID, &domain.TextMessage{
		Type: domain.MsgTypeMessage,
		Text: s.chatPrefix + text,
	}, "")
}

func (s *relayService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	l := pkglog.ForClient(ctx, c.ID)

	if s.recorder.Disconnect(c.ID, s.onFinalized) {
		l.Info().Msg("recording stopped by disconnect")
	}

	s.publish(c.ID, pubsub.EventStreamEnded, pubsub.StreamPayload{ConnectionID: c.ID})

	return s.registry.Unregister(ctx, c.ID)
}

func (s *relayService) LiveStreams(ctx context.Context) ([]domain.LiveSession, error) {
	return s.registry.List(ctx)
}

// onFinalized reports a finished recording to its broadcaster. It runs on a
// finalizer worker; the broadcaster may already be gone, in which case the
// hub drops the message.
func (s *relayService) onFinalized(res recorder.Result) {
	rec := res.Recording
	l := pkglog.L().With().
		Str(pkglog.FieldClientID, rec.ConnectionID).
		Str(pkglog.FieldFilename, rec.Filename).
		Int(pkglog.FieldChunkCount, res.ChunkCount).
		Logger()

	if res.Err != nil {
		l.Error().Err(res.Err).Msg("recording finalization failed")
		s.publish(rec.ConnectionID, pubsub.EventRecordingFailed, pubsub.RecordingPayload{
			ConnectionID: rec.ConnectionID,
			Filename:     rec.Filename,
			Reason:       res.Err.Error(),
		})

		// Local sink failures are only logged; the client sees no recording-saved.
		if errors.Is(res.Err, recorder.ErrUpload) || errors.Is(res.Err, recorder.ErrQueueFull) || errors.Is(res.Err, recorder.ErrStopped) {
			s.hub.SendToClient(rec.ConnectionID, &domain.UploadFailedMessage{
				Type:   domain.MsgTypeUploadFailed,
				Reason: res.Err.Error(),
			})
		}
		return
	}

	l.Info().Int64(pkglog.FieldSize, rec.Size).Float64("duration", rec.Duration).Msg("recording saved")
	s.publish(rec.ConnectionID, pubsub.EventRecordingSaved, pubsub.RecordingPayload{
		ConnectionID: rec.ConnectionID,
		Filename:     rec.Filename,
		Size:         rec.Size,
		Duration:     rec.Duration,
		URL:          rec.URL,
	})

	s.hub.SendToClient(rec.ConnectionID, &domain.RecordingSavedMessage{
		Type:     domain.MsgTypeRecordingSaved,
		Filename: rec.Filename,
		Size:     rec.Size,
		Duration: rec.Duration,
		URL:      rec.URL,
	})
}

// publish emits a lifecycle event. Failures are logged and otherwise ignored.
func (s *relayService) publish(connID, eventType string, payload interface{}) {
	l := pkglog.L()

	event, err := pubsub.NewEvent(eventType, connID, payload)
	if err != nil {
		l.Error().Err(err).Str("event", eventType).Msg("failed to build event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, pubsub.RelayToArchiveChannel(connID), event); err != nil {
		l.Warn().Err(err).Str(pkglog.FieldClientID, connID).Str("event", eventType).Msg("failed to publish event")
	}
}
