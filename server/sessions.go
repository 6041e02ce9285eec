package server

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/bluejay/vm"
)

// Session is a named evaluation context: one Runtime whose globals
// persist across requests, driven by its own worker.
type Session struct {
	ID      string
	Name    string
	Created time.Time

	worker *RuntimeWorker
}

// Worker returns the worker owning the session's runtime.
func (s *Session) Worker() *RuntimeWorker { return s.worker }

// SessionStore manages evaluation sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     []vm.Option
}

// NewSessionStore creates a new session store. opts apply to every
// session runtime.
func NewSessionStore(opts ...vm.Option) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Create creates a new session with an optional name.
func (s *SessionStore) Create(name string) *Session {
	opts := append([]vm.Option{vm.WithInput(strings.NewReader(""))}, s.opts...)
	session := &Session{
		ID:      uuid.NewString(),
		Name:    name,
		Created: time.Now(),
		worker:  NewRuntimeWorker(opts...),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

// Destroy removes a session and stops its worker. It reports whether the
// session existed.
func (s *SessionStore) Destroy(id string) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		session.worker.Stop()
	}
	return ok
}

// List returns every live session, oldest first.
func (s *SessionStore) List() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Close destroys every session.
func (s *SessionStore) Close() {
	for _, session := range s.List() {
		s.Destroy(session.ID)
	}
}
