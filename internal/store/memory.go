package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DaddyAndYungeenCoders/jamify-chat/internal/domain"
)

// MemoryStore is an in-process MessageStore with the same query semantics
// as the Postgres implementation. It backs tests and development runs.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]domain.ChatMessage
	order    []string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string]domain.ChatMessage)}
}

func (s *MemoryStore) Save(_ context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = domain.NewMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if existing, ok := s.messages[msg.ID]; ok {
		// Idempotent under redelivery.
		return existing, nil
	}
	s.messages[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	return msg, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return domain.ChatMessage{}, domain.ErrNotFound
	}
	return msg, nil
}

func (s *MemoryStore) FindByRoomID(_ context.Context, roomID string, opts QueryOptions) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter(func(m domain.ChatMessage) bool { return m.RoomID == roomID }, opts), nil
}

func (s *MemoryStore) FindByUsers(_ context.Context, userA, userB string, opts QueryOptions) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter(func(m domain.ChatMessage) bool {
		return (m.SenderID == userA && m.DestID == userB) ||
			(m.SenderID == userB && m.DestID == userA)
	}, opts), nil
}

func (s *MemoryStore) FindByUser(_ context.Context, userID string) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ChatMessage
	for _, id := range s.order {
		m := s.messages[id]
		if m.SenderID == userID || m.DestID == userID {
			out = append(out, m)
		}
	}
	// Grouped by room, oldest-first within a room.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RoomID != out[j].RoomID {
			return out[i].RoomID < out[j].RoomID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.messages, id)
	for i, mid := range s.order {
		if mid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// filter applies the predicate and query options, newest-first.
func (s *MemoryStore) filter(match func(domain.ChatMessage) bool, opts QueryOptions) []domain.ChatMessage {
	var out []domain.ChatMessage
	for _, id := range s.order {
		m := s.messages[id]
		if !match(m) {
			continue
		}
		if !opts.Before.IsZero() && !m.Timestamp.Before(opts.Before) {
			continue
		}
		if !opts.After.IsZero() && !m.Timestamp.After(opts.After) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
