package presence

import (
	"context"
	"sync"
	"time"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

// MemoryDirectory is an in-process Directory with the same semantics as the
// Redis implementation. It backs tests and single-process development runs.
type MemoryDirectory struct {
	mu          sync.RWMutex
	connections map[string][]domain.Connection // userID -> connections
	sockets     map[string]string              // socketID -> userID
	userRooms   map[string]map[string]struct{} // userID -> room ids
	roomUsers   map[string]map[string]struct{} // roomID -> user ids
}

// NewMemoryDirectory returns an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		connections: make(map[string][]domain.Connection),
		sockets:     make(map[string]string),
		userRooms:   make(map[string]map[string]struct{}),
		roomUsers:   make(map[string]map[string]struct{}),
	}
}

func (d *MemoryDirectory) AddConnection(_ context.Context, userID, socketID, serverID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, conn := range d.connections[userID] {
		if conn.SocketID == socketID {
			// Already registered; idempotent.
			return nil
		}
	}
	d.connections[userID] = append(d.connections[userID], domain.Connection{
		UserID:    userID,
		SocketID:  socketID,
		ServerID:  serverID,
		Timestamp: time.Now().UnixMilli(),
	})
	d.sockets[socketID] = userID
	return nil
}

func (d *MemoryDirectory) RemoveConnection(_ context.Context, userID, socketID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	conns := d.connections[userID]
	for i, conn := range conns {
		if conn.SocketID == socketID {
			d.connections[userID] = append(conns[:i], conns[i+1:]...)
			delete(d.sockets, socketID)
			break
		}
	}
	if len(d.connections[userID]) == 0 {
		delete(d.connections, userID)
	}
	return nil
}

func (d *MemoryDirectory) UserIDForSocket(_ context.Context, socketID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sockets[socketID], nil
}

func (d *MemoryDirectory) ConnectionsForUser(_ context.Context, userID string) ([]domain.Connection, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conns := make([]domain.Connection, len(d.connections[userID]))
	copy(conns, d.connections[userID])
	return conns, nil
}

func (d *MemoryDirectory) AddUserToRoom(_ context.Context, userID, roomID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.userRooms[userID] == nil {
		d.userRooms[userID] = make(map[string]struct{})
	}
	d.userRooms[userID][roomID] = struct{}{}

	if d.roomUsers[roomID] == nil {
		d.roomUsers[roomID] = make(map[string]struct{})
	}
	d.roomUsers[roomID][userID] = struct{}{}
	return nil
}

func (d *MemoryDirectory) RemoveUserFromRoom(_ context.Context, userID, roomID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.userRooms[userID], roomID)
	delete(d.roomUsers[roomID], userID)
	return nil
}

func (d *MemoryDirectory) UserRooms(_ context.Context, userID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := make([]string, 0, len(d.userRooms[userID]))
	for roomID := range d.userRooms[userID] {
		rooms = append(rooms, roomID)
	}
	return rooms, nil
}

func (d *MemoryDirectory) RoomUsers(_ context.Context, roomID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]string, 0, len(d.roomUsers[roomID]))
	for userID := range d.roomUsers[roomID] {
		users = append(users, userID)
	}
	return users, nil
}
