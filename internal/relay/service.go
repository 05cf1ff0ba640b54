// Package relay orchestrates message delivery: validation, room
// resolution, persistence hand-off, and publish/subscribe through the
// broker. The subscription side runs independently on every process and
// bridges broker delivery back into the local gateway fan-out.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/broker"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/gateway"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/presence"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/room"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/store"
)

// Broadcaster is the slice of the gateway the relay needs: local fan-out of
// a relayed message.
type Broadcaster interface {
	BroadcastToRoom(roomID, event string, data any)
}

// Service relays chat messages between processes.
type Service struct {
	broker      broker.Broker
	store       store.MessageStore
	directory   presence.Directory
	broadcaster Broadcaster
	destination string
	logger      *slog.Logger
}

// NewService wires the relay. destination is the broker subject shared by
// every process.
func NewService(b broker.Broker, st store.MessageStore, dir presence.Directory, bc Broadcaster, destination string) *Service {
	return &Service{
		broker:      b,
		store:       st,
		directory:   dir,
		broadcaster: bc,
		destination: destination,
		logger:      slog.Default().With("component", "relay"),
	}
}

// SendMessage validates, resolves the target room, persists and publishes
// one message. It returns the persisted record: the store is the canonical
// source of the final id and timestamp.
//
// Validation failures reject synchronously with a ValidationError before
// any broker or directory interaction. A publish attempted while the broker
// is down surfaces domain.ErrBrokerUnavailable to the caller.
func (s *Service) SendMessage(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	if err := validate(msg); err != nil {
		return domain.ChatMessage{}, err
	}

	if msg.RoomID == "" {
		// Direct message: the room id is a pure function of the two
		// participants, and membership adds are idempotent, so no room
		// registry or existence check is needed.
		msg.RoomID = room.DerivePrivateRoomID(msg.SenderID, msg.DestID)
		for _, userID := range []string{msg.SenderID, msg.DestID} {
			if err := s.directory.AddUserToRoom(ctx, userID, msg.RoomID); err != nil {
				// Non-fatal: the directory is eventually consistent and
				// the join retries on the next message.
				s.logger.Error("room join failed", "user_id", userID, "room_id", msg.RoomID, "error", err)
			}
		}
	}

	if msg.ID == "" {
		msg.ID = domain.NewMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	persisted, err := s.store.Save(ctx, msg)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("persist message %s: %w", msg.ID, err)
	}

	if err := s.broker.Publish(ctx, s.destination, persisted); err != nil {
		return domain.ChatMessage{}, err
	}
	return persisted, nil
}

// Start subscribes to the relay destination. The broker invokes
// handleRelayed for every frame delivered to this process.
func (s *Service) Start(ctx context.Context) error {
	if err := s.broker.Subscribe(ctx, s.destination, s.handleRelayed); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.destination, err)
	}
	s.logger.Info("relay consumer started", "destination", s.destination)
	return nil
}

// handleRelayed bridges one delivered message into the local socket
// fan-out. Returning an error nacks the frame. This runs on every process,
// which is how a message produced on process A reaches sockets attached to
// process B.
func (s *Service) handleRelayed(_ context.Context, msg domain.ChatMessage) error {
	if msg.RoomID == "" {
		return fmt.Errorf("relayed message %s has no room: %w", msg.ID, domain.ErrMalformedMessage)
	}
	s.broadcaster.BroadcastToRoom(msg.RoomID, gateway.EventNewMessage, msg)
	return nil
}

// validate applies the synchronous send checks: non-empty content, a
// sender, and exactly one of room or destination.
func validate(msg domain.ChatMessage) error {
	if msg.Content == "" {
		return domain.NewValidationError("content", "must not be empty")
	}
	if msg.SenderID == "" {
		return domain.NewValidationError("senderId", "is required")
	}
	if msg.RoomID == "" && msg.DestID == "" {
		return domain.NewValidationError("roomId/destId", "exactly one is required")
	}
	if msg.RoomID != "" && msg.DestID != "" {
		return domain.NewValidationError("roomId/destId", "are mutually exclusive")
	}
	return nil
}
