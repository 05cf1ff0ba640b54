package room

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/presence"
)

func TestService_CreatePrivateRoomJoinsBoth(t *testing.T) {
	ctx := context.Background()
	svc := NewService(presence.NewMemoryDirectory())

	r, err := svc.CreatePrivateRoom(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "private_alice_bob", r.ID)

	members, err := svc.Members(ctx, r.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, members)
}

func TestService_CreatePrivateRoomIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(presence.NewMemoryDirectory())

	first, err := svc.CreatePrivateRoom(ctx, "alice", "bob")
	require.NoError(t, err)
	second, err := svc.CreatePrivateRoom(ctx, "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	members, err := svc.Members(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestService_EventRoomJoinsCreator(t *testing.T) {
	ctx := context.Background()
	svc := NewService(presence.NewMemoryDirectory())

	r, err := svc.CreateEventRoom(ctx, "summer-fest", "alice")
	require.NoError(t, err)

	members, err := svc.Members(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)

	require.NoError(t, svc.Join(ctx, "bob", r.ID))
	require.NoError(t, svc.Leave(ctx, "alice", r.ID))

	members, err = svc.Members(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, members)

	rooms, err := svc.UserRooms(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{r.ID}, rooms)
}
