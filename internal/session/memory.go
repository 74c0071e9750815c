package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/opendcs/odcsapi/internal/auth"
)

// maxSessions bounds the in-memory store; least-recently-used sessions
// are destroyed first when the bound is reached.
const maxSessions = 4096

// MemoryStore is an in-process Store built on an expirable LRU. Entries
// age out after the container session timeout; expiry, LRU eviction, and
// explicit invalidation all fire the destroy hook so downstream client
// connections are cleaned up regardless of how the session died.
type MemoryStore struct {
	cache     *expirable.LRU[string, *Record]
	onDestroy func(sessionID string)
}

// MemoryStoreOption customizes a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithDestroyHook registers a callback invoked once per destroyed
// session (timeout, eviction, or Invalidate). The session-destruction
// cascade into the client connection cache is wired through this hook.
func WithDestroyHook(hook func(sessionID string)) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.onDestroy = hook
	}
}

// NewMemoryStore creates a store whose sessions time out after the given
// duration of inactivity.
func NewMemoryStore(timeout time.Duration, opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = expirable.NewLRU[string, *Record](maxSessions, func(id string, _ *Record) {
		if s.onDestroy != nil {
			s.onDestroy(id)
		}
	}, timeout)
	return s
}

// Get returns the record for the session id, if it is still live.
func (s *MemoryStore) Get(id string) (*Record, bool) {
	if id == "" {
		return nil, false
	}
	return s.cache.Get(id)
}

// Put stores or replaces the record, resetting its timeout.
func (s *MemoryStore) Put(rec *Record) {
	s.cache.Add(rec.ID, rec)
}

// New creates and stores a record under a fresh opaque id.
func (s *MemoryStore) New(principal *auth.Principal, scheme string, lastCheck time.Time) *Record {
	rec := &Record{
		ID:        uuid.NewString(),
		Principal: principal,
		Scheme:    scheme,
		LastCheck: lastCheck,
	}
	s.cache.Add(rec.ID, rec)
	return rec
}

// Invalidate destroys the session, firing the destroy hook. A second
// call for the same id is a no-op.
func (s *MemoryStore) Invalidate(id string) {
	s.cache.Remove(id)
}

// Close destroys every live session.
func (s *MemoryStore) Close() {
	s.cache.Purge()
}
