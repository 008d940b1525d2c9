package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"portal-notification-service/internal/models"
)

// MemoryStore is an in-memory Store implementation used in tests and as the
// default when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]models.Notification
	byUser map[string][]string
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]models.Notification),
		byUser: make(map[string][]string),
	}
}

func (s *MemoryStore) Save(ctx context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[n.ID]; !exists {
		s.byUser[n.RecipientID] = append(s.byUser[n.RecipientID], n.ID)
	}
	s.byID[n.ID] = n.Clone()
	return nil
}

// UpdateChannelStatus applies a monotonic status transition. Disallowed
// transitions (including any regression out of a terminal state) are ignored
// so that out-of-order or duplicate updates stay commutative-safe.
func (s *MemoryStore) UpdateChannelStatus(ctx context.Context, id string, ch models.Channel, status models.ChannelStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	current := n.ChannelStatus[ch]
	if !CanTransition(current, status) {
		return nil
	}
	if n.ChannelStatus == nil {
		n.ChannelStatus = make(map[models.Channel]models.ChannelStatus)
	}
	n.ChannelStatus[ch] = status
	s.byID[id] = n
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.byID[id]
	if !ok {
		return models.Notification{}, ErrNotFound
	}
	return n.Clone(), nil
}

func (s *MemoryStore) ListForUser(ctx context.Context, userID string, f Filter) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Notification
	for _, id := range s.byUser[userID] {
		n := s.byID[id]
		if f.UnreadOnly && n.Read {
			continue
		}
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		out = append(out, n.Clone())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !n.Read {
		now := time.Now()
		n.Read = true
		n.ReadAt = &now
		s.byID[id] = n
	}
	return nil
}

func (s *MemoryStore) MarkDismissed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if !n.Dismissed {
		now := time.Now()
		n.Dismissed = true
		n.DismissedAt = &now
		s.byID[id] = n
	}
	return nil
}
