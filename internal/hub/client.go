package hub

import (
	"time"

	"github.com/gorilla/websocket"

	pkglog "github.com/weiawesome/wes-io-relay/pkg/log"
)

const defaultSendBuffer = 256

// Frame is a single outbound WebSocket message.
type Frame struct {
	Type int // websocket.TextMessage or websocket.BinaryMessage
	Data []byte
}

// DisconnectHandler runs once when a client's read loop ends.
type DisconnectHandler func(*Client)

// Client is one WebSocket connection. Send is owned by the hub and is
// closed when the client is unregistered.
type Client struct {
	ID   string
	Hub  *Hub
	Conn *websocket.Conn
	Send chan Frame

	rooms        map[string]struct{} // guarded by Hub.mu
	onDisconnect DisconnectHandler
}

// NewClient creates a client with a send buffer sized from the hub config.
func NewClient(id string, h *Hub, conn *websocket.Conn) *Client {
	size := h.config.SendBufferSize
	if size <= 0 {
		size = defaultSendBuffer
	}
	return &Client{
		ID:    id,
		Hub:   h,
		Conn:  conn,
		Send:  make(chan Frame, size),
		rooms: make(map[string]struct{}),
	}
}

func (c *Client) SetDisconnectHandler(fn DisconnectHandler) {
	c.onDisconnect = fn
}

// SendMessage queues a JSON message for this client.
func (c *Client) SendMessage(message interface{}) error {
	return c.Hub.SendToClient(c.ID, message)
}

// ReadPump feeds inbound frames to handle until the connection fails,
// then runs the disconnect handler and unregisters the client. On a
// closing hub it skips reading and disconnects at once.
func (c *Client) ReadPump(handle func(c *Client, messageType int, data []byte)) {
	cfg := c.Hub.config
	tracked := c.Hub.trackReader()
	defer func() {
		if c.onDisconnect != nil {
			c.onDisconnect(c)
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
		if tracked {
			c.Hub.readers.Done()
		}
	}()
	if !tracked {
		return
	}

	if cfg.MaxMessageSize > 0 {
		c.Conn.SetReadLimit(cfg.MaxMessageSize)
	}
	extend := func() {
		if cfg.PongWait > 0 {
			c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		}
	}
	extend()
	c.Conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	for {
		messageType, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				l := pkglog.L()
				l.Warn().Err(err).Str(pkglog.FieldClientID, c.ID).Msg("websocket read failed")
			}
			return
		}
		handle(c, messageType, data)
	}
}

// WritePump drains Send onto the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	cfg := c.Hub.config
	interval := cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ping := time.NewTicker(interval)
	defer func() {
		ping.Stop()
		c.Conn.Close()
	}()

	deadline := func() {
		if cfg.WriteWait > 0 {
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
		}
	}

	for {
		select {
		case frame, ok := <-c.Send:
			deadline()
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(frame.Type, frame.Data); err != nil {
				return
			}
		case <-ping.C:
			deadline()
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
