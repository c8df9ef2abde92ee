package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-relay/internal/config"
	pkglog "github.com/weiawesome/wes-io-relay/pkg/log"
)

// outbound is a frame addressed to every member of a room except one.
type outbound struct {
	room    string
	frame   Frame
	exclude string
}

// Hub tracks connected clients and their room memberships. Room fan-out is
// serialized through a single queue so every member sees frames in the
// order they were broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client

	queue  chan outbound
	config config.WebSocketConfig

	// readers counts live read loops; closing stops new ones from starting.
	readers sync.WaitGroup
	closing bool
}

// NewHub creates a hub. Call Run before broadcasting.
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		queue:   make(chan outbound, 256),
		config:  cfg,
	}
}

// Run delivers queued room frames. It never returns.
func (h *Hub) Run() {
	for msg := range h.queue {
		h.fanOut(msg)
	}
}

func (h *Hub) fanOut(msg outbound) {
	var slow []*Client

	h.mu.RLock()
	for id, c := range h.rooms[msg.room] {
		if id == msg.exclude {
			continue
		}
		select {
		case c.Send <- msg.frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// A viewer that misses a fragment cannot decode the rest of the
	// stream, so it is disconnected rather than skipped.
	for _, c := range slow {
		l := pkglog.L()
		l.Warn().Str(pkglog.FieldClientID, c.ID).Str(pkglog.FieldRoomID, msg.room).Msg("send buffer full, dropping client")
		h.Unregister(c)
	}
}

// Register makes the client addressable. It may join rooms immediately.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	l := pkglog.L()
	l.Debug().Str(pkglog.FieldClientID, c.ID).Msg("client registered")
}

// Unregister drops the client from every room and closes its Send
// channel. Repeated calls are no-ops.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c.ID] != c {
		h.mu.Unlock()
		return
	}
	for room := range c.rooms {
		h.removeMember(room, c)
	}
	delete(h.clients, c.ID)
	close(c.Send)
	h.mu.Unlock()

	l := pkglog.L()
	l.Debug().Str(pkglog.FieldClientID, c.ID).Msg("client unregistered")
}

// JoinRoom adds c to room. Unregistered clients are ignored.
func (h *Hub) JoinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.ID] != c {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.ID] = c
	c.rooms[room] = struct{}{}

	l := pkglog.L()
	l.Info().Str(pkglog.FieldClientID, c.ID).Str(pkglog.FieldRoomID, room).Msg("client joined room")
}

func (h *Hub) LeaveRoom(c *Client, room string) {
	h.mu.Lock()
	h.removeMember(room, c)
	h.mu.Unlock()

	l := pkglog.L()
	l.Info().Str(pkglog.FieldClientID, c.ID).Str(pkglog.FieldRoomID, room).Msg("client left room")
}

// removeMember requires h.mu held for writing.
func (h *Hub) removeMember(room string, c *Client) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// BroadcastToRoom queues message as a JSON text frame for room.
func (h *Hub) BroadcastToRoom(room string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.queue <- outbound{room: room, frame: Frame{Type: websocket.TextMessage, Data: data}, exclude: exclude}
	return nil
}

// BroadcastBinaryToRoom queues data as a binary frame for room. The
// caller must not modify data afterwards.
func (h *Hub) BroadcastBinaryToRoom(room string, data []byte, exclude string) {
	h.queue <- outbound{room: room, frame: Frame{Type: websocket.BinaryMessage, Data: data}, exclude: exclude}
}

// SendToClient queues a JSON message for one client. Unknown clients are
// ignored.
func (h *Hub) SendToClient(clientID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	// Held across the send so Unregister cannot close the channel under us.
	h.mu.RLock()
	c, ok := h.clients[clientID]
	delivered := true
	if ok {
		select {
		case c.Send <- Frame{Type: websocket.TextMessage, Data: data}:
		default:
			delivered = false
		}
	}
	h.mu.RUnlock()

	if !delivered {
		h.Unregister(c)
	}
	return nil
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// trackReader admits a read loop unless the hub is closing.
func (h *Hub) trackReader() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.readers.Add(1)
	return true
}

// CloseAll closes every connection and refuses new read loops. Each read
// loop then exits and runs its disconnect handler; use Wait to block until
// they have.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closing = true
	for _, c := range h.clients {
		if c.Conn != nil {
			c.Conn.Close()
		}
	}
}

// Wait blocks until every read loop has run its disconnect handler or ctx
// is done.
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.readers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
