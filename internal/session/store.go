package session

import (
	"context"
	"sync"
	"time"

	"dejure-gateway/internal/model"
)

// Store persists token and user per hashed session key. Get returns
// model.ErrSessionNotFound for unknown or expired keys.
type Store interface {
	Get(ctx context.Context, key string) (model.Session, error)
	Put(ctx context.Context, key string, s model.Session, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Sweeper is implemented by stores that need expired rows removed explicitly.
type Sweeper interface {
	CleanExpired(ctx context.Context) (int64, error)
}

type memoryEntry struct {
	session   model.Session
	expiresAt time.Time
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (model.Session, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || !entry.expiresAt.After(s.now()) {
		return model.Session{}, model.ErrSessionNotFound
	}

	return cloneSession(entry.session), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, sess model.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{session: cloneSession(sess), expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) CleanExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for key, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}

	return removed, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// cloneSession copies the user so callers never share a profile with the store.
func cloneSession(sess model.Session) model.Session {
	if sess.User == nil {
		return sess
	}

	user := *sess.User
	if user.Permissions != nil {
		grants := make(model.PermissionMap, len(user.Permissions))
		for i, grant := range user.Permissions {
			grant.Permissions = append([]string(nil), grant.Permissions...)
			grants[i] = grant
		}
		user.Permissions = grants
	}
	sess.User = &user

	return sess
}
