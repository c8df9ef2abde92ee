package domain

import "encoding/json"

// WebSocket message types from client.
const (
	MsgTypeStartRecording = "start-recording"
	MsgTypeVideoChunk     = "video-chunk"
	MsgTypeStopRecording  = "stop-recording"
	MsgTypeJoinRoom       = "join-room"
	MsgTypeLeaveRoom      = "leave-room"
	MsgTypeChatMessage    = "chat-message"
	MsgTypePing           = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeConnected        = "connected"
	MsgTypeRecordingStarted = "recording-started"
	MsgTypeRoomJoined       = "room-joined"
	MsgTypeMessage          = "message"
	MsgTypeRecordingSaved   = "recording-saved"
	MsgTypeUploadFailed     = "upload-failed"
	MsgTypeError            = "error"
	MsgTypePong             = "pong"
)

// FlagFirstFragment is bit 0 of the leading byte of a binary video frame.
const FlagFirstFragment byte = 1 << 0

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

// VideoChunkMessage carries a base64 fragment for clients that cannot send binary frames.
type VideoChunkMessage struct {
	Type            string `json:"type"`
	Data            []byte `json:"data"`
	IsFirstFragment bool   `json:"isFirstFragment"`
}

// RoomMessage is sent by client to join or leave a room.
type RoomMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// ChatMessage is relayed to every member of RoomID.
type ChatMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// Server -> Client messages

// ConnectedMessage tells a client its connection ID, which is also its stream room.
type ConnectedMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

type RecordingStartedMessage struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`
}

type RoomJoinedMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// TextMessage is the chat payload delivered to room members.
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RecordingSavedMessage reports a finalized recording to its broadcaster.
type RecordingSavedMessage struct {
	Type     string  `json:"type"`
	Filename string  `json:"filename"`
	Size     int64   `json:"size"`
	Duration float64 `json:"duration"`
	URL      string  `json:"url,omitempty"`
}

type UploadFailedMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ErrorMessage is sent when an error occurs.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeRecordingInProgress = "RECORDING_IN_PROGRESS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// NewErrorMessage creates a new error message.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}

// Pong is the reply to an application-level ping.
var Pong = json.RawMessage(`{"type":"` + MsgTypePong + `"}`)
