package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsRollingAverageMatchesMean(t *testing.T) {
	stats := NewStats(time.Hour)

	latencies := []time.Duration{
		120 * time.Millisecond,
		300 * time.Millisecond,
		90 * time.Millisecond,
		450 * time.Millisecond,
		60 * time.Millisecond,
	}

	var sum float64
	for i, l := range latencies {
		stats.Record(l)
		sum += l.Seconds()

		// The incremental fold must equal the arithmetic mean at every step
		snapshot := stats.Snapshot()
		assert.InDelta(t, sum/float64(i+1), snapshot.AvgResponseTime, 1e-9)
	}

	assert.Equal(t, int64(len(latencies)), stats.Snapshot().TotalRequests)
}

func TestStatsReuseClassification(t *testing.T) {
	stats := NewStats(time.Hour)

	assert.False(t, stats.Record(time.Millisecond), "first request never counts as reuse")
	assert.True(t, stats.Record(time.Millisecond), "request inside the reuse window is a reuse")

	snapshot := stats.Snapshot()
	assert.Equal(t, int64(2), snapshot.TotalRequests)
	assert.Equal(t, int64(1), snapshot.ConnectionReuseCount)
	assert.InDelta(t, 50.0, snapshot.ReusePercentage, 1e-9)
}

func TestStatsTinyReuseWindow(t *testing.T) {
	stats := NewStats(time.Nanosecond)

	stats.Record(time.Millisecond)
	time.Sleep(time.Millisecond)
	assert.False(t, stats.Record(time.Millisecond), "gap beyond the window is not a reuse")
}

func TestStatsSeedOnlyBeforeTraffic(t *testing.T) {
	stats := NewStats(time.Hour)

	stats.Seed(2 * time.Second)
	assert.InDelta(t, 2.0, stats.Snapshot().AvgResponseTime, 1e-9)
	assert.Equal(t, int64(0), stats.Snapshot().TotalRequests)

	// The first real request replaces the seed in the fold
	stats.Record(time.Second)
	assert.InDelta(t, 1.0, stats.Snapshot().AvgResponseTime, 1e-9)

	// Seeding after traffic is a no-op
	stats.Seed(9 * time.Second)
	assert.InDelta(t, 1.0, stats.Snapshot().AvgResponseTime, 1e-9)
}

func TestStatsLastActivity(t *testing.T) {
	stats := NewStats(time.Hour)
	assert.True(t, stats.LastActivity().IsZero())

	before := time.Now()
	stats.Record(time.Millisecond)
	last := stats.LastActivity()
	assert.False(t, last.Before(before))
}
