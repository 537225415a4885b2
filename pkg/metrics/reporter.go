package metrics

import (
	"sync"
	"time"

	"github.com/clipscommerce/socialscan/pkg/logging"
)

// ReporterConfig holds periodic aggregation configuration.
type ReporterConfig struct {
	// Interval between reports.
	Interval time.Duration
	// Window is how far back each report looks.
	Window time.Duration
}

// DefaultReporterConfig returns the default reporter configuration.
func DefaultReporterConfig() ReporterConfig {
	return ReporterConfig{
		Interval: 5 * time.Minute,
		Window:   1 * time.Hour,
	}
}

// Reporter periodically aggregates a Recorder and publishes the result.
// Reports go to the structured log, to the Prometheus collectors when
// configured, and onto a bounded channel for any interested consumer.
// Publishing never blocks the request path: if the channel is full the
// report is dropped.
type Reporter struct {
	recorder   *Recorder
	collectors *Collectors
	config     ReporterConfig
	logger     *logging.Logger

	reports  chan Report
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewReporter creates a reporter over the given recorder. collectors may
// be nil when Prometheus export is disabled.
func NewReporter(recorder *Recorder, collectors *Collectors, config ReporterConfig) *Reporter {
	if config.Interval <= 0 {
		config.Interval = DefaultReporterConfig().Interval
	}
	if config.Window <= 0 {
		config.Window = DefaultReporterConfig().Window
	}
	return &Reporter{
		recorder:   recorder,
		collectors: collectors,
		config:     config,
		logger:     logging.GetLogger(),
		reports:    make(chan Report, 8),
		stopCh:     make(chan struct{}),
	}
}

// Reports returns the channel reports are published on.
func (r *Reporter) Reports() <-chan Report {
	return r.reports
}

// Start launches the reporting loop.
func (r *Reporter) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.publish()
			}
		}
	}()
}

// Stop terminates the reporting loop. Safe to call more than once.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}

func (r *Reporter) publish() {
	report := r.recorder.Aggregate(time.Now().Add(-r.config.Window))

	r.logger.Info("Metrics report",
		"total_operations", report.TotalOperations,
		"success_rate", report.SuccessRate,
		"average_duration_ms", report.AverageDuration.Milliseconds(),
		"cache_hit_rate", report.CacheHitRate,
		"error_count", report.ErrorCount,
	)

	if r.collectors != nil {
		r.collectors.ObserveReport(report)
	}

	select {
	case r.reports <- report:
	default:
		// Consumer is behind; drop rather than block.
	}
}
