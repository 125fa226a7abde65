package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"organ-quiz-service/internal/cache"
	"organ-quiz-service/internal/session"
	"organ-quiz-service/internal/store"
)

// ErrSessionNotFound means the id is unknown or the session was swept.
var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	sess        *session.Session
	lastTouched time.Time
}

// Registry is the process-scoped map of live quiz sessions. It owns
// session lifecycle: creation, lookup, and idle expiry via Sweep. Sweep is
// driven by an external scheduler (a ticker in main), never by the
// registry itself.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

func New() *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Create registers a new session over the given store snapshot and returns
// it. Session ids are fresh uuids, unique for the registry's lifetime.
func (r *Registry) Create(st *store.Store, images *cache.Cache) *session.Session {
	s := session.New(uuid.NewString(), st, images)

	r.mu.Lock()
	r.sessions[s.ID] = &entry{sess: s, lastTouched: r.now()}
	r.mu.Unlock()

	return s
}

// Get returns the live session for id and refreshes its idle timer.
func (r *Registry) Get(id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastTouched = r.now()
	return e.sess, nil
}

// Touch refreshes the idle timer for id. Unknown ids are ignored.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		e.lastTouched = r.now()
	}
}

// Sweep removes sessions idle for longer than idleTimeout and returns how
// many were removed. Best effort; it never fails.
func (r *Registry) Sweep(idleTimeout time.Duration) int {
	cutoff := r.now().Add(-idleTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.sessions {
		if e.lastTouched.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
