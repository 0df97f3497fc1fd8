// Package memory holds the per-session sliding window of prior exchanges.
package memory

import (
	"sync"
	"time"

	"github.com/rensmac/chat-gateway/internal/domain"
)

// DefaultWindowSize is the number of exchanges retained per session
const DefaultWindowSize = 10

type session struct {
	exchanges []domain.Exchange
	createdAt time.Time
}

// Store keeps a bounded conversation window per session identifier.
// Individual windows are capped at the store's window size; session
// records themselves live for the process lifetime unless maxSessions
// is set, in which case the oldest-created session is dropped.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*session
	windowSize  int
	maxSessions int
}

// NewStore creates a session store with the given window size per session.
// maxSessions of 0 means sessions are never evicted.
func NewStore(windowSize, maxSessions int) *Store {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Store{
		sessions:    make(map[string]*session),
		windowSize:  windowSize,
		maxSessions: maxSessions,
	}
}

// WindowSize returns the per-session exchange cap
func (s *Store) WindowSize() int {
	return s.windowSize
}

// must be called with s.mu held
func (s *Store) getOrCreate(id string) *session {
	sess, ok := s.sessions[id]
	if ok {
		return sess
	}

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.evictOldest()
	}

	sess = &session{createdAt: time.Now()}
	s.sessions[id] = sess
	return sess
}

// must be called with s.mu held
func (s *Store) evictOldest() {
	var oldestID string
	var oldestAt time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.createdAt.Before(oldestAt) {
			oldestID = id
			oldestAt = sess.createdAt
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

// Clear empties a session's exchanges without removing the record
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(id).exchanges = nil
}

// Append adds one exchange, evicting the oldest when the window is full
func (s *Store) Append(id, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreate(id)
	sess.exchanges = append(sess.exchanges, domain.Exchange{
		Question: question,
		Answer:   answer,
		At:       time.Now(),
	})
	if len(sess.exchanges) > s.windowSize {
		sess.exchanges = sess.exchanges[len(sess.exchanges)-s.windowSize:]
	}
}

// Snapshot returns an ordered copy of a session's exchanges
func (s *Store) Snapshot(id string) []domain.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreate(id)
	out := make([]domain.Exchange, len(sess.exchanges))
	copy(out, sess.exchanges)
	return out
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
