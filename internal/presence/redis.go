package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

// Key layout, shared by every process:
//
//	user:<userId>:connections  set of connection records (JSON)
//	socket:<socketId>:user     string, reverse lookup
//	user:<userId>:rooms        set of room ids
//	room:<roomId>:users        set of user ids
func userConnectionsKey(userID string) string { return fmt.Sprintf("user:%s:connections", userID) }
func socketUserKey(socketID string) string    { return fmt.Sprintf("socket:%s:user", socketID) }
func userRoomsKey(userID string) string       { return fmt.Sprintf("user:%s:rooms", userID) }
func roomUsersKey(roomID string) string       { return fmt.Sprintf("room:%s:users", roomID) }

// connRecord is the JSON shape stored in the user's connection set. The
// record must round-trip byte-identically so SRem can target the exact
// member that SAdd wrote.
type connRecord struct {
	SocketID  string `json:"socketId"`
	ServerID  string `json:"serverId"`
	Timestamp int64  `json:"timestamp"`
}

// RedisDirectory implements Directory on a Redis instance reachable by all
// processes.
type RedisDirectory struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisDirectory wraps an already connected Redis client.
func NewRedisDirectory(client *redis.Client) *RedisDirectory {
	return &RedisDirectory{
		client: client,
		logger: slog.Default().With("component", "presence"),
	}
}

// AddConnection issues two independent writes: the connection record into
// the user's set, then the reverse socket mapping. They are deliberately not
// atomic; see the package comment.
func (d *RedisDirectory) AddConnection(ctx context.Context, userID, socketID, serverID string) error {
	record, err := json.Marshal(connRecord{
		SocketID:  socketID,
		ServerID:  serverID,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal connection record: %w", err)
	}

	if err := d.client.SAdd(ctx, userConnectionsKey(userID), record).Err(); err != nil {
		return fmt.Errorf("add connection for user %s: %w", userID, err)
	}
	if err := d.client.Set(ctx, socketUserKey(socketID), userID, 0).Err(); err != nil {
		return fmt.Errorf("set socket mapping for %s: %w", socketID, err)
	}
	return nil
}

// RemoveConnection scans the user's connection set for the member matching
// socketID and removes it together with the reverse mapping. No-op if no
// member matches.
func (d *RedisDirectory) RemoveConnection(ctx context.Context, userID, socketID string) error {
	members, err := d.client.SMembers(ctx, userConnectionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list connections for user %s: %w", userID, err)
	}

	for _, raw := range members {
		var rec connRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			d.logger.Warn("skipping unreadable connection record", "user_id", userID, "error", err)
			continue
		}
		if rec.SocketID != socketID {
			continue
		}
		if err := d.client.SRem(ctx, userConnectionsKey(userID), raw).Err(); err != nil {
			return fmt.Errorf("remove connection for user %s: %w", userID, err)
		}
		if err := d.client.Del(ctx, socketUserKey(socketID)).Err(); err != nil {
			return fmt.Errorf("delete socket mapping for %s: %w", socketID, err)
		}
		return nil
	}
	return nil
}

func (d *RedisDirectory) UserIDForSocket(ctx context.Context, socketID string) (string, error) {
	userID, err := d.client.Get(ctx, socketUserKey(socketID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup user for socket %s: %w", socketID, err)
	}
	return userID, nil
}

func (d *RedisDirectory) ConnectionsForUser(ctx context.Context, userID string) ([]domain.Connection, error) {
	members, err := d.client.SMembers(ctx, userConnectionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list connections for user %s: %w", userID, err)
	}

	conns := make([]domain.Connection, 0, len(members))
	for _, raw := range members {
		var rec connRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			d.logger.Warn("skipping unreadable connection record", "user_id", userID, "error", err)
			continue
		}
		conns = append(conns, domain.Connection{
			UserID:    userID,
			SocketID:  rec.SocketID,
			ServerID:  rec.ServerID,
			Timestamp: rec.Timestamp,
		})
	}
	return conns, nil
}

// AddUserToRoom adds both sides of the membership association. SADD gives
// the set semantics: adding twice is a no-op.
func (d *RedisDirectory) AddUserToRoom(ctx context.Context, userID, roomID string) error {
	if err := d.client.SAdd(ctx, userRoomsKey(userID), roomID).Err(); err != nil {
		return fmt.Errorf("add room %s for user %s: %w", roomID, userID, err)
	}
	if err := d.client.SAdd(ctx, roomUsersKey(roomID), userID).Err(); err != nil {
		return fmt.Errorf("add user %s to room %s: %w", userID, roomID, err)
	}
	return nil
}

func (d *RedisDirectory) RemoveUserFromRoom(ctx context.Context, userID, roomID string) error {
	if err := d.client.SRem(ctx, userRoomsKey(userID), roomID).Err(); err != nil {
		return fmt.Errorf("remove room %s for user %s: %w", roomID, userID, err)
	}
	if err := d.client.SRem(ctx, roomUsersKey(roomID), userID).Err(); err != nil {
		return fmt.Errorf("remove user %s from room %s: %w", userID, roomID, err)
	}
	return nil
}

func (d *RedisDirectory) UserRooms(ctx context.Context, userID string) ([]string, error) {
	rooms, err := d.client.SMembers(ctx, userRoomsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list rooms for user %s: %w", userID, err)
	}
	return rooms, nil
}

func (d *RedisDirectory) RoomUsers(ctx context.Context, roomID string) ([]string, error) {
	users, err := d.client.SMembers(ctx, roomUsersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list users for room %s: %w", roomID, err)
	}
	return users, nil
}
