package pool

import (
	"context"
	"time"

	"github.com/rensmac/chat-gateway/internal/worker"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultIdleThreshold is how long the pool may sit idle before a
	// warm-up call is issued
	DefaultIdleThreshold = 120 * time.Second
	// DefaultPollInterval is the maintainer's fixed cadence
	DefaultPollInterval = 60 * time.Second
	// DefaultWarmupCount is the size of the startup warm-up burst
	DefaultWarmupCount = 5
)

// Warmer issues low-cost warm-up calls against the remote model
type Warmer interface {
	Warm(ctx context.Context, count int) (time.Duration, error)
}

// Maintainer re-warms the outbound connection pool when no real request
// has arrived within the idle threshold. Warm-up calls themselves do not
// count as activity, so an idle pool keeps getting re-warmed until real
// traffic resumes.
type Maintainer struct {
	warmer        Warmer
	stats         *Stats
	jobs          *worker.Pool
	idleThreshold time.Duration
	pollInterval  time.Duration
}

// NewMaintainer creates a maintainer over the given warmer and stats
func NewMaintainer(warmer Warmer, stats *Stats, jobs *worker.Pool, idleThreshold, pollInterval time.Duration) *Maintainer {
	if idleThreshold <= 0 {
		idleThreshold = DefaultIdleThreshold
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Maintainer{
		warmer:        warmer,
		stats:         stats,
		jobs:          jobs,
		idleThreshold: idleThreshold,
		pollInterval:  pollInterval,
	}
}

// Warmup issues the startup burst of parallel warm-up calls and seeds the
// rolling latency average with their mean. Failures are logged, not fatal.
func (m *Maintainer) Warmup(ctx context.Context, count int) {
	if count <= 0 {
		count = DefaultWarmupCount
	}

	avg, err := m.warmer.Warm(ctx, count)
	if err != nil {
		log.Warn().Err(err).Int("count", count).Msg("startup warm-up failed")
		return
	}

	m.stats.Seed(avg)
	log.Info().Int("count", count).Dur("avg_latency", avg).Msg("connection pool warmed up")
}

// Run polls on a fixed cadence until the context is cancelled
func (m *Maintainer) Run(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick submits one asynchronous warm-up call if the pool has been idle
// longer than the threshold. It never blocks the caller.
func (m *Maintainer) Tick() {
	last := m.stats.LastActivity()
	if !last.IsZero() && time.Since(last) <= m.idleThreshold {
		return
	}

	m.jobs.Submit(func() {
		if _, err := m.warmer.Warm(context.Background(), 1); err != nil {
			log.Warn().Err(err).Msg("keepalive warm-up failed")
			return
		}
		log.Debug().Msg("keepalive warm-up completed")
	})
}
