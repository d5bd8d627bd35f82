package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pandahoho/importer/internal/core"
)

// ErrSessionNotFound is returned for unknown, closed or expired sessions.
var ErrSessionNotFound = errors.New("import session not found")

// minSweepInterval keeps a tiny TTL from spinning the janitor.
const minSweepInterval = time.Second

// ImportSession is one open import modal.
type ImportSession struct {
	ID     string
	Target string
	Handle core.SessionHandle

	lastSeen time.Time
}

// SessionManager tracks open import sessions by ID and expires the ones
// nobody has touched for ttl.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*ImportSession
	ttl      time.Duration
	opts     core.SessionOptions
	now      func() time.Time
}

// NewSessionManager returns an empty manager.
func NewSessionManager(ttl time.Duration, opts core.SessionOptions) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*ImportSession),
		ttl:      ttl,
		opts:     opts,
		now:      time.Now,
	}
}

// Open starts an idle session for target.
func (m *SessionManager) Open(target core.Target) *ImportSession {
	sess := &ImportSession{
		ID:     uuid.New().String(),
		Target: target.Info().Key,
		Handle: target.NewSession(m.opts),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess.lastSeen = m.now()
	m.sessions[sess.ID] = sess
	return sess
}

// Get returns a session and marks it as seen.
func (m *SessionManager) Get(id string) (*ImportSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = m.now()
	return sess, nil
}

// Close cancels any in-flight submission and forgets the session.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.Handle.Close()
	return nil
}

// CloseAll closes every session. Used on shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*ImportSession)
	m.mu.Unlock()

	for _, sess := range all {
		sess.Handle.Close()
	}
}

// Count returns the number of open sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many it
// removed. A session that is submitting is never idle.
func (m *SessionManager) Sweep() int {
	now := m.now()
	var expired []*ImportSession

	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.Handle.Snapshot().State == core.StateSubmitting {
			continue
		}
		last := sess.lastSeen
		if updated := sess.Handle.UpdatedAt(); updated.After(last) {
			last = updated
		}
		if now.Sub(last) > m.ttl {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		sess.Handle.Close()
		slog.Info("import session expired", "session_id", sess.ID, "target", sess.Target)
	}
	return len(expired)
}

// Run sweeps expired sessions until ctx is cancelled.
func (m *SessionManager) Run(ctx context.Context) {
	interval := max(m.ttl/2, minSweepInterval)
	slog.Info("session janitor started", "ttl", m.ttl, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
