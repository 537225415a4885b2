package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(t time.Time, op string, success bool) Sample {
	return Sample{
		Operation: op,
		StartedAt: t,
		Duration:  100 * time.Millisecond,
		Success:   success,
	}
}

func TestRecorder_RingBufferDropsOldest(t *testing.T) {
	r := NewRecorder(3)
	base := time.Now()

	for i := 0; i < 5; i++ {
		r.Record(sampleAt(base.Add(time.Duration(i)*time.Second), fmt.Sprintf("op-%d", i), true))
	}

	assert.Equal(t, 3, r.Len())
	report := r.Aggregate(base.Add(-time.Hour))
	assert.Equal(t, 3, report.TotalOperations)
	// The two oldest samples are gone.
	assert.NotContains(t, report.ByOperation, "op-0")
	assert.NotContains(t, report.ByOperation, "op-1")
	assert.Contains(t, report.ByOperation, "op-4")
}

func TestRecorder_AggregateFields(t *testing.T) {
	r := NewRecorder(100)
	base := time.Now()

	r.Record(Sample{Operation: "fetch_user_posts", Platform: "tiktok", StartedAt: base, Duration: 100 * time.Millisecond, Success: true, CacheHit: BoolPtr(true), ItemsFetched: 5})
	r.Record(Sample{Operation: "fetch_user_posts", Platform: "tiktok", StartedAt: base, Duration: 300 * time.Millisecond, Success: true, CacheHit: BoolPtr(false), ItemsFetched: 4})
	r.Record(Sample{Operation: "fetch_competitor_posts", Platform: "instagram", StartedAt: base, Duration: 200 * time.Millisecond, Success: false})
	r.Record(Sample{Operation: "scan", StartedAt: base, Duration: 600 * time.Millisecond, Success: true})

	report := r.Aggregate(base.Add(-time.Minute))
	assert.Equal(t, 4, report.TotalOperations)
	assert.InDelta(t, 0.75, report.SuccessRate, 1e-9)
	assert.Equal(t, 300*time.Millisecond, report.AverageDuration)
	assert.InDelta(t, 0.5, report.CacheHitRate, 1e-9)
	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, 2, report.ByOperation["fetch_user_posts"])
	assert.Equal(t, 2, report.ByPlatform["tiktok"])
	assert.Equal(t, 1, report.ByPlatform["instagram"])
}

func TestRecorder_AggregateSinceFilter(t *testing.T) {
	r := NewRecorder(100)
	base := time.Now()

	r.Record(sampleAt(base.Add(-2*time.Hour), "old", true))
	r.Record(sampleAt(base, "recent", true))

	report := r.Aggregate(base.Add(-time.Hour))
	assert.Equal(t, 1, report.TotalOperations)
	assert.Contains(t, report.ByOperation, "recent")
	assert.NotContains(t, report.ByOperation, "old")
}

func TestRecorder_AggregateEmpty(t *testing.T) {
	r := NewRecorder(10)

	report := r.Aggregate(time.Now().Add(-time.Hour))
	assert.Equal(t, 0, report.TotalOperations)
	assert.Zero(t, report.SuccessRate)
	assert.Zero(t, report.AverageDuration)
	assert.Zero(t, report.CacheHitRate)
}

func TestReporter_PublishesOnChannel(t *testing.T) {
	r := NewRecorder(10)
	r.Record(sampleAt(time.Now(), "op", true))

	reporter := NewReporter(r, nil, ReporterConfig{Interval: 10 * time.Millisecond, Window: time.Hour})
	reporter.Start()
	defer reporter.Stop()

	select {
	case report := <-reporter.Reports():
		require.Equal(t, 1, report.TotalOperations)
	case <-time.After(2 * time.Second):
		t.Fatal("no report published")
	}
}

func TestReporter_StopIsIdempotent(t *testing.T) {
	reporter := NewReporter(NewRecorder(10), nil, ReporterConfig{Interval: time.Hour})
	reporter.Start()
	reporter.Stop()
	reporter.Stop()
}
