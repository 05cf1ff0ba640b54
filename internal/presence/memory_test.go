package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDirectory_AddConnectionIdempotent(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory()

	require.NoError(t, d.AddConnection(ctx, "alice", "sock-1", "server-a"))
	require.NoError(t, d.AddConnection(ctx, "alice", "sock-1", "server-a"))

	conns, err := d.ConnectionsForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "sock-1", conns[0].SocketID)
	assert.Equal(t, "server-a", conns[0].ServerID)
}

func TestMemoryDirectory_MultiDevice(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory()

	require.NoError(t, d.AddConnection(ctx, "alice", "sock-1", "server-a"))
	require.NoError(t, d.AddConnection(ctx, "alice", "sock-2", "server-b"))

	conns, err := d.ConnectionsForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, conns, 2)

	// Removing one device leaves the other intact.
	require.NoError(t, d.RemoveConnection(ctx, "alice", "sock-1"))

	conns, err = d.ConnectionsForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "sock-2", conns[0].SocketID)
}

func TestMemoryDirectory_SocketReverseLookup(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory()

	require.NoError(t, d.AddConnection(ctx, "bob", "sock-9", "server-a"))

	userID, err := d.UserIDForSocket(ctx, "sock-9")
	require.NoError(t, err)
	assert.Equal(t, "bob", userID)

	// Unknown sockets resolve to the empty user id, not an error.
	userID, err = d.UserIDForSocket(ctx, "sock-missing")
	require.NoError(t, err)
	assert.Empty(t, userID)

	require.NoError(t, d.RemoveConnection(ctx, "bob", "sock-9"))
	userID, err = d.UserIDForSocket(ctx, "sock-9")
	require.NoError(t, err)
	assert.Empty(t, userID)
}

func TestMemoryDirectory_RoomMembershipIsASet(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory()

	require.NoError(t, d.AddUserToRoom(ctx, "alice", "event_fest"))
	require.NoError(t, d.AddUserToRoom(ctx, "alice", "event_fest"))
	require.NoError(t, d.AddUserToRoom(ctx, "bob", "event_fest"))

	users, err := d.RoomUsers(ctx, "event_fest")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, users)

	rooms, err := d.UserRooms(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"event_fest"}, rooms)
}

func TestMemoryDirectory_RemoveUserFromRoomBothSides(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDirectory()

	require.NoError(t, d.AddUserToRoom(ctx, "alice", "jam_session"))
	require.NoError(t, d.RemoveUserFromRoom(ctx, "alice", "jam_session"))

	users, err := d.RoomUsers(ctx, "jam_session")
	require.NoError(t, err)
	assert.Empty(t, users)

	rooms, err := d.UserRooms(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
