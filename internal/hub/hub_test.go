package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-relay/internal/config"
)

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(config.WebSocketConfig{SendBufferSize: 64})
	go h.Run()
	return h
}

func recv(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case f, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return f
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return Frame{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case f := <-c.Send:
		t.Fatalf("client %s got unexpected frame %q", c.ID, f.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastBinaryPreservesOrder(t *testing.T) {
	h := newRunningHub(t)
	viewer := NewClient("viewer", h, nil)
	h.Register(viewer)
	h.JoinRoom(viewer, "stream-1")

	for i := 0; i < 20; i++ {
		h.BroadcastBinaryToRoom("stream-1", []byte{byte(i)}, "")
	}

	for i := 0; i < 20; i++ {
		f := recv(t, viewer)
		assert.Equal(t, websocket.BinaryMessage, f.Type)
		assert.Equal(t, []byte{byte(i)}, f.Data)
	}
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	h := newRunningHub(t)
	a := NewClient("a", h, nil)
	b := NewClient("b", h, nil)
	outsider := NewClient("c", h, nil)
	for _, c := range []*Client{a, b, outsider} {
		h.Register(c)
	}
	h.JoinRoom(a, "X")
	h.JoinRoom(b, "X")
	assert.Equal(t, 2, h.RoomSize("X"))

	require.NoError(t, h.BroadcastToRoom("X", map[string]string{"text": "hi"}, ""))

	for _, c := range []*Client{a, b} {
		f := recv(t, c)
		assert.Equal(t, websocket.TextMessage, f.Type)
		assert.JSONEq(t, `{"text":"hi"}`, string(f.Data))
	}
	assertSilent(t, outsider)

	h.LeaveRoom(b, "X")
	require.NoError(t, h.BroadcastToRoom("X", map[string]string{"text": "again"}, "a"))
	assertSilent(t, a)
	assertSilent(t, b)
}

func TestSendToClient(t *testing.T) {
	h := newRunningHub(t)
	c := NewClient("solo", h, nil)
	h.Register(c)

	require.NoError(t, c.SendMessage(map[string]string{"type": "pong"}))
	var got map[string]string
	require.NoError(t, json.Unmarshal(recv(t, c).Data, &got))
	assert.Equal(t, "pong", got["type"])

	// unknown clients are a delivery no-op
	assert.NoError(t, h.SendToClient("gone", map[string]string{"type": "pong"}))
}

func TestUnregisterClosesSendAndLeavesRooms(t *testing.T) {
	h := newRunningHub(t)
	c := NewClient("leaver", h, nil)
	h.Register(c)
	h.JoinRoom(c, "X")

	h.Unregister(c)

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.Equal(t, 0, h.RoomSize("X"))

	// joining after unregister must not resurrect membership
	h.JoinRoom(c, "X")
	assert.Equal(t, 0, h.RoomSize("X"))
	assert.NoError(t, h.SendToClient(c.ID, map[string]string{"type": "pong"}))
}

func TestWaitWithoutReaders(t *testing.T) {
	h := newRunningHub(t)
	h.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, h.Wait(ctx))
	assert.False(t, h.trackReader())
}
