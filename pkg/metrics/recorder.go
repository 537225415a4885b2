package metrics

import (
	"sync"
	"time"
)

// Sample is one recorded operation outcome. Samples are append-only and
// never mutated after being recorded.
type Sample struct {
	Operation    string        `json:"operation"`
	Platform     string        `json:"platform,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Success      bool          `json:"success"`
	CacheHit     *bool         `json:"cache_hit,omitempty"`
	ItemsFetched int           `json:"items_fetched,omitempty"`
}

// Report is an aggregation over the samples recorded since a cutoff.
type Report struct {
	Since           time.Time      `json:"since"`
	GeneratedAt     time.Time      `json:"generated_at"`
	TotalOperations int            `json:"total_operations"`
	SuccessRate     float64        `json:"success_rate"`
	AverageDuration time.Duration  `json:"average_duration"`
	CacheHitRate    float64        `json:"cache_hit_rate"`
	ByOperation     map[string]int `json:"by_operation"`
	ByPlatform      map[string]int `json:"by_platform"`
	ErrorCount      int            `json:"error_count"`
}

// DefaultBufferSize is the default sample buffer capacity.
const DefaultBufferSize = 1000

// Recorder keeps a bounded ring buffer of operation samples. Once the
// buffer is full the oldest sample is dropped, so aggregation always
// reflects the most recent activity. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	samples  []Sample
	capacity int
	head     int // index of the oldest sample
	size     int
}

// NewRecorder creates a recorder with the given buffer capacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &Recorder{
		samples:  make([]Sample, capacity),
		capacity: capacity,
	}
}

// Record appends a sample, dropping the oldest if the buffer is full.
func (r *Recorder) Record(sample Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < r.capacity {
		r.samples[(r.head+r.size)%r.capacity] = sample
		r.size++
		return
	}
	r.samples[r.head] = sample
	r.head = (r.head + 1) % r.capacity
}

// Len returns the number of retained samples.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Aggregate summarizes all retained samples whose StartedAt is at or after
// since.
func (r *Recorder) Aggregate(since time.Time) Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := Report{
		Since:       since,
		GeneratedAt: time.Now(),
		ByOperation: make(map[string]int),
		ByPlatform:  make(map[string]int),
	}

	var (
		successes     int
		totalDuration time.Duration
		cacheLookups  int
		cacheHits     int
	)

	for i := 0; i < r.size; i++ {
		s := r.samples[(r.head+i)%r.capacity]
		if s.StartedAt.Before(since) {
			continue
		}
		report.TotalOperations++
		totalDuration += s.Duration
		report.ByOperation[s.Operation]++
		if s.Platform != "" {
			report.ByPlatform[s.Platform]++
		}
		if s.Success {
			successes++
		} else {
			report.ErrorCount++
		}
		if s.CacheHit != nil {
			cacheLookups++
			if *s.CacheHit {
				cacheHits++
			}
		}
	}

	if report.TotalOperations > 0 {
		report.SuccessRate = float64(successes) / float64(report.TotalOperations)
		report.AverageDuration = totalDuration / time.Duration(report.TotalOperations)
	}
	if cacheLookups > 0 {
		report.CacheHitRate = float64(cacheHits) / float64(cacheLookups)
	}
	return report
}

// BoolPtr is a convenience for filling Sample.CacheHit.
func BoolPtr(b bool) *bool {
	return &b
}
