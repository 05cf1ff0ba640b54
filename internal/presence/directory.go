// Package presence implements the shared directory recording which user is
// connected to which socket on which process, and which rooms a user belongs
// to. It is the only cross-process shared mutable state in the system.
//
// Directory operations are not transactional: a logical operation may issue
// several independent writes, and a crash between them can leave a dangling
// reverse mapping or a missing forward entry. Callers absorb this with
// idempotent retries; a failed presence write must never abort the
// connection lifecycle operation in progress.
package presence

import (
	"context"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

// Directory is the shared presence and room-membership store.
//
// All mutation operations are idempotent: re-registering an already
// registered socket, removing a connection that is gone, or adding a user to
// a room twice are harmless no-ops.
type Directory interface {
	// AddConnection records a live connection and the reverse
	// socket-to-user mapping.
	AddConnection(ctx context.Context, userID, socketID, serverID string) error

	// RemoveConnection deletes the connection matching socketID from the
	// user's connection set, along with the reverse mapping. It is a no-op
	// if no matching connection exists.
	RemoveConnection(ctx context.Context, userID, socketID string) error

	// UserIDForSocket resolves the reverse mapping. An empty user id with a
	// nil error means the mapping is absent; absence is not an error.
	UserIDForSocket(ctx context.Context, socketID string) (string, error)

	// ConnectionsForUser lists every live connection owned by the user.
	ConnectionsForUser(ctx context.Context, userID string) ([]domain.Connection, error)

	// AddUserToRoom and RemoveUserFromRoom mutate the bidirectional
	// user/room membership sets.
	AddUserToRoom(ctx context.Context, userID, roomID string) error
	RemoveUserFromRoom(ctx context.Context, userID, roomID string) error

	// UserRooms returns the set of rooms the user belongs to.
	UserRooms(ctx context.Context, userID string) ([]string, error)

	// RoomUsers returns the set of users belonging to the room.
	RoomUsers(ctx context.Context, roomID string) ([]string, error)
}
