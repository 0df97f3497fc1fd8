// Package cache implements the bounded response cache with oldest-first
// eviction. Keys are the literal (question, session) pair, deliberately
// case- and whitespace-sensitive.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/rensmac/chat-gateway/internal/domain"
)

// DefaultCapacity is the default maximum number of cached responses
const DefaultCapacity = 1000

// noSession is the key sentinel for requests without a session identifier
const noSession = "no-session"

// Payload is what a cache entry stores for replay
type Payload struct {
	Answer      string
	ChatHistory []domain.ChatMessage
	SessionID   string
	APICallTime float64
	StoredAt    time.Time
}

type entry struct {
	key     string
	payload Payload
}

// ResponseCache is a fixed-capacity FIFO cache. A hit does not refresh
// recency; eviction order is strictly insertion order.
type ResponseCache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	order    []string
	capacity int
}

// New creates a response cache with the given capacity
func New(capacity int) *ResponseCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ResponseCache{
		entries:  make(map[string]*entry),
		capacity: capacity,
	}
}

// Key builds the composite cache key for a question and session
func Key(question, sessionID string) string {
	if sessionID == "" {
		sessionID = noSession
	}
	return fmt.Sprintf("%s:%s", question, sessionID)
}

// Lookup returns the cached payload for the exact (question, session) pair
func (c *ResponseCache) Lookup(question, sessionID string) (Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[Key(question, sessionID)]
	if !ok {
		return Payload{}, false
	}
	return e.payload, true
}

// Insert stores a payload, evicting the oldest-inserted entry at capacity.
// Re-inserting an existing key replaces the payload without changing its
// position in the eviction order.
func (c *ResponseCache) Insert(question, sessionID string, payload Payload) {
	key := Key(question, sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.payload = payload
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &entry{key: key, payload: payload}
	c.order = append(c.order, key)
}

// Len returns the current number of cached entries
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
