package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rensmac/chat-gateway/internal/worker"
	"github.com/stretchr/testify/assert"
)

type stubWarmer struct {
	calls   atomic.Int64
	latency time.Duration
	err     error
}

func (w *stubWarmer) Warm(ctx context.Context, count int) (time.Duration, error) {
	w.calls.Add(1)
	return w.latency, w.err
}

func TestMaintainerTickWhenIdle(t *testing.T) {
	warmer := &stubWarmer{latency: time.Millisecond}
	stats := NewStats(time.Hour)
	jobs := worker.NewPool(1, 8)
	defer jobs.Stop()

	m := NewMaintainer(warmer, stats, jobs, 10*time.Millisecond, time.Minute)

	// No activity recorded yet: every tick re-warms
	m.Tick()
	assert.Eventually(t, func() bool {
		return warmer.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMaintainerTickSkippedWhenActive(t *testing.T) {
	warmer := &stubWarmer{latency: time.Millisecond}
	stats := NewStats(time.Hour)
	jobs := worker.NewPool(1, 8)
	defer jobs.Stop()

	m := NewMaintainer(warmer, stats, jobs, time.Hour, time.Minute)

	stats.Record(time.Millisecond)
	m.Tick()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), warmer.calls.Load(), "recent activity suppresses warm-up")
}

func TestMaintainerRepeatedIdleTicksKeepWarming(t *testing.T) {
	warmer := &stubWarmer{latency: time.Millisecond}
	stats := NewStats(time.Hour)
	jobs := worker.NewPool(1, 8)
	defer jobs.Stop()

	m := NewMaintainer(warmer, stats, jobs, time.Nanosecond, time.Minute)

	stats.Record(time.Millisecond)
	time.Sleep(time.Millisecond)

	// Warm-up calls do not count as activity, so idle ticks keep firing
	m.Tick()
	m.Tick()
	assert.Eventually(t, func() bool {
		return warmer.calls.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestMaintainerWarmupSeedsAverage(t *testing.T) {
	warmer := &stubWarmer{latency: 750 * time.Millisecond}
	stats := NewStats(time.Hour)
	jobs := worker.NewPool(1, 8)
	defer jobs.Stop()

	m := NewMaintainer(warmer, stats, jobs, time.Minute, time.Minute)
	m.Warmup(context.Background(), 5)

	assert.Equal(t, int64(1), warmer.calls.Load())
	assert.InDelta(t, 0.75, stats.Snapshot().AvgResponseTime, 1e-9)
}

func TestMaintainerWarmupFailureIsNotFatal(t *testing.T) {
	warmer := &stubWarmer{err: context.DeadlineExceeded}
	stats := NewStats(time.Hour)
	jobs := worker.NewPool(1, 8)
	defer jobs.Stop()

	m := NewMaintainer(warmer, stats, jobs, time.Minute, time.Minute)
	m.Warmup(context.Background(), 5)

	assert.Equal(t, float64(0), stats.Snapshot().AvgResponseTime)
}

func TestMaintainerRunStopsOnCancel(t *testing.T) {
	warmer := &stubWarmer{latency: time.Millisecond}
	stats := NewStats(time.Hour)
	jobs := worker.NewPool(1, 8)
	defer jobs.Stop()

	m := NewMaintainer(warmer, stats, jobs, time.Nanosecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return warmer.calls.Load() >= 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("maintainer did not stop after cancel")
	}
}
