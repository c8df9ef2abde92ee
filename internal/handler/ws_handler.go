package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-relay/internal/domain"
	"github.com/weiawesome/wes-io-relay/internal/hub"
	"github.com/weiawesome/wes-io-relay/internal/service"
	pkglog "github.com/weiawesome/wes-io-relay/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub     *hub.Hub
	service service.RelayService
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc service.RelayService) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the request and starts the client pumps.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	clientID := uuid.New().String()
	c.Set(pkglog.FieldClientID, clientID)

	l := pkglog.Ctx(c.Request.Context())

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	// The request context ends with this handler; the connection outlives it.
	ctx := pkglog.WithLogger(context.Background(), l.With().Str(pkglog.FieldClientID, clientID).Logger())

	client := hub.NewClient(clientID, h.hub, conn)
	client.SetDisconnectHandler(func(cl *hub.Client) {
		if err := h.service.HandleDisconnect(ctx, cl); err != nil {
			dl := pkglog.Ctx(ctx)
			dl.Error().Err(err).Msg("disconnect handler error")
		}
	})

	h.hub.Register(client)

	if err := h.service.HandleConnect(ctx, client); err != nil {
		l.Error().Err(err).Msg("failed to register live session")
		h.hub.Unregister(client)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(func(cl *hub.Client, messageType int, data []byte) {
		h.handleMessage(ctx, cl, messageType, data)
	})
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, messageType int, message []byte) {
	l := pkglog.Ctx(ctx)

	if messageType == websocket.BinaryMessage {
		// byte 0 carries flags, the rest is the fragment
		if len(message) == 0 {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Empty video chunk"))
			return
		}
		first := message[0]&domain.FlagFirstFragment != 0
		if err := h.service.HandleVideoChunk(ctx, client, message[1:], first); err != nil {
			l.Error().Err(err).Msg("video chunk failed")
		}
		return
	}

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeStartRecording:
		if err := h.service.HandleStartRecording(ctx, client); err != nil {
			l.Error().Err(err).Msg("start recording failed")
		}

	case domain.MsgTypeVideoChunk:
		var msg domain.VideoChunkMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid video-chunk message"))
			return
		}
		if err := h.service.HandleVideoChunk(ctx, client, msg.Data, msg.IsFirstFragment); err != nil {
			l.Error().Err(err).Msg("video chunk failed")
		}

	case domain.MsgTypeStopRecording:
		if err := h.service.HandleStopRecording(ctx, client); err != nil {
			l.Error().Err(err).Msg("stop recording failed")
		}

	case domain.MsgTypeJoinRoom:
		var msg domain.RoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid join-room message"))
			return
		}
		if err := h.service.HandleJoinRoom(ctx, client, msg.RoomID); err != nil {
			l.Error().Err(err).Msg("join room failed")
		}

	case domain.MsgTypeLeaveRoom:
		var msg domain.RoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid leave-room message"))
			return
		}
		if err := h.service.HandleLeaveRoom(ctx, client, msg.RoomID); err != nil {
			l.Error().Err(err).Msg("leave room failed")
		}

	case domain.MsgTypeChatMessage:
		var msg domain.ChatMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid chat-message message"))
			return
		}
		if err := h.service.HandleChatMessage(ctx, client, msg.RoomID, msg.Text); err != nil {
			l.Error().Err(err).Msg("chat message failed")
		}

	case domain.MsgTypePing:
		client.SendMessage(domain.Pong)

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}
