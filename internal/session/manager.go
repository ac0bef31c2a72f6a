// Package session owns the browser session state behind the gateway cookie.
//
// A session holds the backend bearer token and the latest user profile. It
// changes only through SetToken, SetUser and Clear. Profile fetches are
// sequenced per session: each BeginFetch takes a new request number and only
// the most recent fetch may write the user, so a slow response can never
// overwrite a newer one or resurrect a cleared session.
package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"dejure-gateway/internal/event"
	"dejure-gateway/internal/model"
)

const stripeCount = 64

type Options struct {
	TTL    time.Duration
	Bus    event.Bus
	Cookie CookieConfig
}

type Manager struct {
	store   Store
	ttl     time.Duration
	bus     event.Bus
	cookie  CookieConfig
	stripes [stripeCount]sync.Mutex

	mu       sync.Mutex
	seq      map[string]uint64
	inflight map[string]int
}

func NewManager(store Store, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Cookie.Name == "" {
		opts.Cookie.Name = DefaultCookieName
	}

	return &Manager{
		store:    store,
		ttl:      opts.TTL,
		bus:      opts.Bus,
		cookie:   opts.Cookie,
		seq:      map[string]uint64{},
		inflight: map[string]int{},
	}
}

// Key derives the storage key from the cookie value so stored keys cannot be
// replayed as cookies.
func Key(sessionID string) string {
	sum := blake2b.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}

// stripe picks the lock for key from its first hash byte.
func (m *Manager) stripe(key string) *sync.Mutex {
	var b [1]byte
	if len(key) >= 2 {
		_, _ = hex.Decode(b[:], []byte(key[:2]))
	}
	return &m.stripes[int(b[0])%stripeCount]
}

// Start creates a session holding token and user and returns its cookie value.
func (m *Manager) Start(ctx context.Context, token string, user *model.UserProfile) (string, error) {
	sessionID := uuid.NewString()
	key := Key(sessionID)

	if err := m.store.Put(ctx, key, model.Session{Token: token, User: user}, m.ttl); err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}

	m.publish(event.TypeSessionCreated, key, userPayload(user))
	return sessionID, nil
}

// Snapshot returns the session for sessionID. Unknown sessions yield the
// empty session, not an error.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) (model.Session, error) {
	if sessionID == "" {
		return model.Session{}, nil
	}

	key := Key(sessionID)
	sess, err := m.store.Get(ctx, key)
	if errors.Is(err, model.ErrSessionNotFound) {
		return model.Session{}, nil
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("load session: %w", err)
	}

	m.mu.Lock()
	sess.IsLoading = m.inflight[key] > 0
	m.mu.Unlock()

	return sess, nil
}

func (m *Manager) SetToken(ctx context.Context, sessionID string, token string) error {
	return m.mutate(ctx, sessionID, event.TypeSessionTokenSet, func(sess *model.Session) any {
		sess.Token = token
		return nil
	})
}

// SetUser replaces the whole user; sub-objects are never merged.
func (m *Manager) SetUser(ctx context.Context, sessionID string, user *model.UserProfile) error {
	return m.mutate(ctx, sessionID, event.TypeSessionUserSet, func(sess *model.Session) any {
		sess.User = user
		return userPayload(user)
	})
}

// Clear logs the session out. In-flight fetches for it are invalidated.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	key := Key(sessionID)
	lock := m.stripe(key)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	if m.inflight[key] > 0 {
		m.seq[key]++
	} else {
		delete(m.seq, key)
	}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	m.publish(event.TypeSessionCleared, key, nil)
	return nil
}

func (m *Manager) mutate(ctx context.Context, sessionID string, typ event.Type, apply func(*model.Session) any) error {
	if sessionID == "" {
		return model.ErrSessionNotFound
	}

	key := Key(sessionID)
	lock := m.stripe(key)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Get(ctx, key)
	if err != nil {
		return err
	}

	payload := apply(&sess)
	if err := m.store.Put(ctx, key, sess, m.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	m.publish(typ, key, payload)
	return nil
}

func (m *Manager) publish(typ event.Type, key string, payload any) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(event.New(typ, key, payload))
}

// Fetch is one sequenced profile request for a session.
type Fetch struct {
	manager *Manager
	key     string
	seq     uint64
	once    sync.Once
}

// BeginFetch marks the session as loading and takes the next request number.
// Callers must call Done when the request settles.
func (m *Manager) BeginFetch(sessionID string) *Fetch {
	key := Key(sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq[key]++
	m.inflight[key]++

	return &Fetch{manager: m, key: key, seq: m.seq[key]}
}

// Apply writes user into the session if this fetch is still the latest one
// and the session still exists. It reports whether the user was written.
func (f *Fetch) Apply(ctx context.Context, user *model.UserProfile) (bool, error) {
	m := f.manager
	lock := m.stripe(f.key)
	lock.Lock()
	defer lock.Unlock()

	if !f.Latest() {
		return false, nil
	}

	sess, err := m.store.Get(ctx, f.key)
	if errors.Is(err, model.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}

	sess.User = user
	if err := m.store.Put(ctx, f.key, sess, m.ttl); err != nil {
		return false, fmt.Errorf("save session: %w", err)
	}

	m.publish(event.TypeSessionUserSet, f.key, userPayload(user))
	return true, nil
}

func (f *Fetch) Latest() bool {
	f.manager.mu.Lock()
	defer f.manager.mu.Unlock()

	return f.manager.seq[f.key] == f.seq
}

func (f *Fetch) Done() {
	f.once.Do(func() {
		m := f.manager
		m.mu.Lock()
		defer m.mu.Unlock()

		m.inflight[f.key]--
		if m.inflight[f.key] <= 0 {
			delete(m.inflight, f.key)
			delete(m.seq, f.key)
		}
	})
}

func userPayload(user *model.UserProfile) any {
	if user == nil {
		return nil
	}

	return map[string]any{"id": user.ID, "role": user.Role}
}
