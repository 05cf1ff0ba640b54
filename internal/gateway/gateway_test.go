package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/presence"
)

func startGateway(t *testing.T, dir presence.Directory) *Gateway {
	t.Helper()
	g := New("server-test", dir)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go g.Run(ctx)
	return g
}

// testClient builds a client without a transport; the pumps never run, so
// frames are read straight from the send channel.
func testClient() *Client {
	return NewClient(nil)
}

func receiveEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case payload, ok := <-c.Send:
		require.True(t, ok, "send channel closed unexpectedly")
		var env Envelope
		require.NoError(t, json.Unmarshal(payload, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return Envelope{}
	}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.Send:
		t.Fatalf("unexpected frame: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGateway_RegisterJoinsUserRooms(t *testing.T) {
	ctx := context.Background()
	dir := presence.NewMemoryDirectory()
	require.NoError(t, dir.AddUserToRoom(ctx, "alice", "event_fest"))

	g := startGateway(t, dir)

	c := testClient()
	g.HandleConnect(c)
	g.HandleRegister(ctx, c, "alice")

	// The connection landed in the shared directory.
	conns, err := dir.ConnectionsForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, c.SocketID, conns[0].SocketID)
	assert.Equal(t, "server-test", conns[0].ServerID)

	// The socket is locally joined to the user's rooms.
	g.BroadcastToRoom("event_fest", EventNewMessage, map[string]string{"content": "hello"})

	env := receiveEnvelope(t, c)
	assert.Equal(t, EventNewMessage, env.Event)
}

func TestGateway_ReRegisterConverges(t *testing.T) {
	ctx := context.Background()
	dir := presence.NewMemoryDirectory()
	require.NoError(t, dir.AddUserToRoom(ctx, "alice", "event_fest"))

	g := startGateway(t, dir)

	c := testClient()
	g.HandleConnect(c)
	g.HandleRegister(ctx, c, "alice")
	g.HandleRegister(ctx, c, "alice")

	conns, err := dir.ConnectionsForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	// One frame per broadcast, not one per registration.
	g.BroadcastToRoom("event_fest", EventNewMessage, "x")
	receiveEnvelope(t, c)
	assertNoFrame(t, c)
}

func TestGateway_BroadcastReachesOnlyRoomMembers(t *testing.T) {
	ctx := context.Background()
	dir := presence.NewMemoryDirectory()
	require.NoError(t, dir.AddUserToRoom(ctx, "alice", "event_fest"))

	g := startGateway(t, dir)

	member := testClient()
	g.HandleConnect(member)
	g.HandleRegister(ctx, member, "alice")

	outsider := testClient()
	g.HandleConnect(outsider)
	g.HandleRegister(ctx, outsider, "bob")

	g.BroadcastToRoom("event_fest", EventNewMessage, "hello")

	env := receiveEnvelope(t, member)
	assert.Equal(t, EventNewMessage, env.Event)
	assertNoFrame(t, outsider)
}

func TestGateway_JoinRoomAlignsLocalSockets(t *testing.T) {
	ctx := context.Background()
	dir := presence.NewMemoryDirectory()
	g := startGateway(t, dir)

	c := testClient()
	g.HandleConnect(c)
	g.HandleRegister(ctx, c, "alice")

	g.JoinRoom("alice", "jam_session")
	g.BroadcastToRoom("jam_session", EventNewMessage, "riff")
	receiveEnvelope(t, c)

	g.LeaveRoom("alice", "jam_session")
	g.BroadcastToRoom("jam_session", EventNewMessage, "gone")
	assertNoFrame(t, c)
}

func TestGateway_DisconnectCleansUp(t *testing.T) {
	ctx := context.Background()
	dir := presence.NewMemoryDirectory()
	require.NoError(t, dir.AddUserToRoom(ctx, "alice", "event_fest"))

	g := startGateway(t, dir)

	c := testClient()
	g.HandleConnect(c)
	g.HandleRegister(ctx, c, "alice")

	g.HandleDisconnect(ctx, c)

	// The shared directory no longer lists the connection.
	conns, err := dir.ConnectionsForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, conns)

	// The send channel is closed, terminating the write pump.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-c.Send:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// Broadcasts after disconnect reach nobody and do not block.
	g.BroadcastToRoom("event_fest", EventNewMessage, "after")
}

func TestGateway_MultiDeviceFanOut(t *testing.T) {
	ctx := context.Background()
	dir := presence.NewMemoryDirectory()
	require.NoError(t, dir.AddUserToRoom(ctx, "alice", "event_fest"))

	g := startGateway(t, dir)

	phone := testClient()
	laptop := testClient()
	for _, c := range []*Client{phone, laptop} {
		g.HandleConnect(c)
		g.HandleRegister(ctx, c, "alice")
	}

	g.BroadcastToRoom("event_fest", EventNewMessage, "ping")

	receiveEnvelope(t, phone)
	receiveEnvelope(t, laptop)
}
