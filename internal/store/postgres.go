package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	room_id    TEXT NOT NULL,
	sender_id  TEXT NOT NULL,
	dest_id    TEXT,
	content    TEXT NOT NULL,
	metadata   JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_room_created_idx ON messages (room_id, created_at DESC);
CREATE INDEX IF NOT EXISTS messages_sender_idx ON messages (sender_id);
CREATE INDEX IF NOT EXISTS messages_dest_idx ON messages (dest_id);
`

// PostgresStore implements MessageStore on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the messages table and indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure messages schema: %w", err)
	}
	return nil
}

// Save inserts the message, assigning id and timestamp when absent, and
// returns the stored record. Re-saving an existing id is a no-op that
// returns the already stored row, which keeps at-least-once redelivery from
// duplicating history.
func (s *PostgresStore) Save(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = domain.NewMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	var metadata []byte
	if msg.Metadata != nil {
		var err error
		metadata, err = json.Marshal(msg.Metadata)
		if err != nil {
			return domain.ChatMessage{}, fmt.Errorf("encode metadata for %s: %w", msg.ID, err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, room_id, sender_id, dest_id, content, metadata, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.RoomID, msg.SenderID, msg.DestID, msg.Content, metadata, msg.Timestamp)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("save message %s: %w", msg.ID, err)
	}

	return s.FindByID(ctx, msg.ID)
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (domain.ChatMessage, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, room_id, sender_id, COALESCE(dest_id, ''), content, metadata, created_at
		FROM messages WHERE id = $1`, id)

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChatMessage{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("find message %s: %w", id, err)
	}
	return msg, nil
}

// FindByRoomID returns the room history newest-first, honoring the
// before/after/limit bounds.
func (s *PostgresStore) FindByRoomID(ctx context.Context, roomID string, opts QueryOptions) ([]domain.ChatMessage, error) {
	query, args := historyQuery("room_id = $1", []any{roomID}, opts)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find messages for room %s: %w", roomID, err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// FindByUsers returns the direct traffic between two users in either
// direction, newest-first.
func (s *PostgresStore) FindByUsers(ctx context.Context, userA, userB string, opts QueryOptions) ([]domain.ChatMessage, error) {
	query, args := historyQuery(
		"((sender_id = $1 AND dest_id = $2) OR (sender_id = $2 AND dest_id = $1))",
		[]any{userA, userB}, opts)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find messages between %s and %s: %w", userA, userB, err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// FindByUser returns the user's messages grouped by room, oldest-first
// within each room.
func (s *PostgresStore) FindByUser(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, sender_id, COALESCE(dest_id, ''), content, metadata, created_at
		FROM messages
		WHERE sender_id = $1 OR dest_id = $1
		ORDER BY room_id, created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("find messages for user %s: %w", userID, err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// historyQuery builds a newest-first select with optional before/after
// bounds and a limit.
func historyQuery(where string, args []any, opts QueryOptions) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, room_id, sender_id, COALESCE(dest_id, ''), content, metadata, created_at
		FROM messages WHERE `)
	sb.WriteString(where)

	if !opts.Before.IsZero() {
		args = append(args, opts.Before)
		fmt.Fprintf(&sb, " AND created_at < $%d", len(args))
	}
	if !opts.After.IsZero() {
		args = append(args, opts.After)
		fmt.Fprintf(&sb, " AND created_at > $%d", len(args))
	}

	sb.WriteString(" ORDER BY created_at DESC")
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args
}

func scanMessage(row pgx.Row) (domain.ChatMessage, error) {
	var (
		msg      domain.ChatMessage
		metadata []byte
	)
	if err := row.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.DestID, &msg.Content, &metadata, &msg.Timestamp); err != nil {
		return domain.ChatMessage{}, err
	}
	if len(metadata) > 0 {
		msg.Metadata = domain.NewMetadata()
		if err := json.Unmarshal(metadata, msg.Metadata); err != nil {
			return domain.ChatMessage{}, fmt.Errorf("decode metadata for %s: %w", msg.ID, err)
		}
	}
	return msg, nil
}

func collectMessages(rows pgx.Rows) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
