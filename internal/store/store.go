// Package store persists chat messages. The relay hands every outgoing
// message to the store before publishing and must use the returned record,
// not its local copy: the store is the canonical source of the final id and
// timestamp.
package store

import (
	"context"
	"time"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

// QueryOptions narrows a history query. Zero values mean "no bound".
type QueryOptions struct {
	Before time.Time
	After  time.Time
	Limit  int
}

// MessageStore is the persistence contract consumed by the relay and the
// history endpoints.
type MessageStore interface {
	// Save persists the message, assigning the canonical id and timestamp
	// if absent, and returns the stored record.
	Save(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error)

	// FindByID returns the message with the given id, or
	// domain.ErrNotFound.
	FindByID(ctx context.Context, id string) (domain.ChatMessage, error)

	// FindByRoomID returns the room's messages sorted by timestamp
	// descending.
	FindByRoomID(ctx context.Context, roomID string, opts QueryOptions) ([]domain.ChatMessage, error)

	// FindByUsers returns the direct messages exchanged between two users,
	// in either direction, sorted by timestamp descending.
	FindByUsers(ctx context.Context, userA, userB string, opts QueryOptions) ([]domain.ChatMessage, error)

	// FindByUser returns every message sent to or by the user, grouped by
	// room and time-ascending within a room.
	FindByUser(ctx context.Context, userID string) ([]domain.ChatMessage, error)

	// Delete removes a message by id. Deleting a missing message returns
	// domain.ErrNotFound.
	Delete(ctx context.Context, id string) error
}
