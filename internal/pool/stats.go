// Package pool tracks outbound connection usage and keeps the pool warm
// while the gateway is idle.
package pool

import (
	"sync"
	"time"

	"github.com/rensmac/chat-gateway/internal/domain"
)

// DefaultReuseWindow is the gap under which a request is classified as
// reusing a recently active connection
const DefaultReuseWindow = 600 * time.Second

// Stats holds cumulative connection-pool counters. Counters grow
// monotonically; there is no reset.
type Stats struct {
	mu            sync.Mutex
	totalRequests int64
	reuseCount    int64
	lastRequest   time.Time
	avgLatency    float64 // seconds
	reuseWindow   time.Duration
}

// NewStats creates a stats tracker with the given reuse window
func NewStats(reuseWindow time.Duration) *Stats {
	if reuseWindow <= 0 {
		reuseWindow = DefaultReuseWindow
	}
	return &Stats{reuseWindow: reuseWindow}
}

// Record folds one completed model call into the counters and returns
// whether the call was classified as a connection reuse. It also marks
// the pool as active for the maintainer.
func (s *Stats) Record(latency time.Duration) bool {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	reused := !s.lastRequest.IsZero() && now.Sub(s.lastRequest) < s.reuseWindow
	s.lastRequest = now
	s.totalRequests++
	if reused {
		s.reuseCount++
	}

	n := float64(s.totalRequests)
	s.avgLatency = (s.avgLatency*(n-1) + latency.Seconds()) / n

	return reused
}

// Seed sets the initial rolling average from the startup warm-up burst.
// It only applies before any real request has been recorded.
func (s *Stats) Seed(avg time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalRequests == 0 {
		s.avgLatency = avg.Seconds()
	}
}

// LastActivity returns when the pool last served a real request
func (s *Stats) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequest
}

// Snapshot returns the current cumulative counters
func (s *Stats) Snapshot() domain.ConnectionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := domain.ConnectionStats{
		TotalRequests:        s.totalRequests,
		ConnectionReuseCount: s.reuseCount,
		AvgResponseTime:      s.avgLatency,
	}
	if s.totalRequests > 0 {
		snapshot.ReusePercentage = float64(s.reuseCount) / float64(s.totalRequests) * 100
	}
	return snapshot
}
