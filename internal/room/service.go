package room

import (
	"context"
	"fmt"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/presence"
)

// Service manages room membership on top of the presence directory. Because
// ids are deterministic and membership adds are idempotent, "creating" a
// room is nothing more than deriving its id and joining the participants;
// no room registry exists.
type Service struct {
	directory presence.Directory
}

// NewService creates a room service backed by the given directory.
func NewService(directory presence.Directory) *Service {
	return &Service{directory: directory}
}

// CreatePrivateRoom derives the canonical private room for two users and
// joins both of them.
func (s *Service) CreatePrivateRoom(ctx context.Context, userA, userB string) (domain.Room, error) {
	r := NewPrivateRoom(userA, userB)
	for _, userID := range r.Participants {
		if err := s.directory.AddUserToRoom(ctx, userID, r.ID); err != nil {
			return domain.Room{}, fmt.Errorf("join %s to room %s: %w", userID, r.ID, err)
		}
	}
	return r, nil
}

// CreateEventRoom derives the event room and joins the creator.
func (s *Service) CreateEventRoom(ctx context.Context, eventID, creatorID string) (domain.Room, error) {
	r := NewEventRoom(eventID)
	if err := s.directory.AddUserToRoom(ctx, creatorID, r.ID); err != nil {
		return domain.Room{}, fmt.Errorf("join %s to room %s: %w", creatorID, r.ID, err)
	}
	return r, nil
}

// CreateJamRoom derives the jam room and joins the creator.
func (s *Service) CreateJamRoom(ctx context.Context, jamID, creatorID string) (domain.Room, error) {
	r := NewJamRoom(jamID)
	if err := s.directory.AddUserToRoom(ctx, creatorID, r.ID); err != nil {
		return domain.Room{}, fmt.Errorf("join %s to room %s: %w", creatorID, r.ID, err)
	}
	return r, nil
}

// Join adds a user to a room.
func (s *Service) Join(ctx context.Context, userID, roomID string) error {
	return s.directory.AddUserToRoom(ctx, userID, roomID)
}

// Leave removes a user from a room.
func (s *Service) Leave(ctx context.Context, userID, roomID string) error {
	return s.directory.RemoveUserFromRoom(ctx, userID, roomID)
}

// Members lists the users belonging to a room.
func (s *Service) Members(ctx context.Context, roomID string) ([]string, error) {
	return s.directory.RoomUsers(ctx, roomID)
}

// UserRooms lists the rooms a user belongs to.
func (s *Service) UserRooms(ctx context.Context, userID string) ([]string, error) {
	return s.directory.UserRooms(ctx, userID)
}
