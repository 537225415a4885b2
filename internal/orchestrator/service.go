package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipscommerce/socialscan/internal/analysis"
	"github.com/clipscommerce/socialscan/internal/platform"
	"github.com/clipscommerce/socialscan/internal/scancache"
	"github.com/clipscommerce/socialscan/pkg/errors"
	"github.com/clipscommerce/socialscan/pkg/logging"
	"github.com/clipscommerce/socialscan/pkg/metrics"
	"github.com/clipscommerce/socialscan/pkg/resilience"
	"github.com/clipscommerce/socialscan/pkg/tracing"
	"github.com/clipscommerce/socialscan/pkg/types"
)

// Archive persists terminal scan results durably. Optional; a nil
// archive disables persistence beyond the in-memory map and cache.
type Archive interface {
	RecordScan(ctx context.Context, result *types.ScanResult) error
}

// Config contains scan orchestration configuration.
type Config struct {
	ScanTimeout     time.Duration `json:"scan_timeout"`
	Retention       time.Duration `json:"retention"`
	FailedRetention time.Duration `json:"failed_retention"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
	LookbackDays    int           `json:"lookback_days"`
	PostsTTL        time.Duration `json:"posts_ttl"`
	ResultTTL       time.Duration `json:"result_ttl"`
}

// DefaultConfig returns default orchestration configuration.
func DefaultConfig() *Config {
	return &Config{
		ScanTimeout:     5 * time.Minute,
		Retention:       24 * time.Hour,
		FailedRetention: 5 * time.Minute,
		CleanupInterval: 1 * time.Hour,
		LookbackDays:    30,
		PostsTTL:        30 * time.Minute,
		ResultTTL:       24 * time.Hour,
	}
}

// Dependencies are the collaborators injected into the orchestrator.
// Adapters, Analyzer and Store are required; the rest default to
// freshly constructed instances when nil.
type Dependencies struct {
	Adapters   *platform.Registry
	Analyzer   analysis.Analyzer
	Store      scancache.Store
	Breakers   *resilience.BreakerRegistry
	Retrier    *resilience.Retrier
	Recorder   *metrics.Recorder
	Collectors *metrics.Collectors
	Tracer     *tracing.Service
	Archive    Archive
}

// Service coordinates scans: it fans out to platform adapters guarded
// by circuit breaker, retry and cache, merges the fetched posts, hands
// them to the analysis engine, and tracks each scan's lifecycle.
type Service struct {
	adapters   *platform.Registry
	analyzer   analysis.Analyzer
	store      scancache.Store
	breakers   *resilience.BreakerRegistry
	retrier    *resilience.Retrier
	recorder   *metrics.Recorder
	collectors *metrics.Collectors
	tracer     *tracing.Service
	archive    Archive
	logger     *logging.Logger
	config     *Config

	mu    sync.RWMutex
	scans map[string]*types.ScanResult

	stopCh      chan struct{}
	wg          sync.WaitGroup
	destroyOnce sync.Once

	now func() time.Time
}

// NewService creates the orchestrator and starts its cleanup loop. The
// caller must call Destroy exactly once when done with it.
func NewService(deps Dependencies, config *Config) (*Service, error) {
	if deps.Adapters == nil {
		return nil, errors.NewValidationError("adapter registry is required")
	}
	if deps.Analyzer == nil {
		return nil, errors.NewValidationError("analyzer is required")
	}
	if deps.Store == nil {
		return nil, errors.NewValidationError("cache store is required")
	}
	if config == nil {
		config = DefaultConfig()
	} else {
		cfg := *config
		defaults := DefaultConfig()
		if cfg.ScanTimeout <= 0 {
			cfg.ScanTimeout = defaults.ScanTimeout
		}
		if cfg.Retention <= 0 {
			cfg.Retention = defaults.Retention
		}
		if cfg.FailedRetention <= 0 {
			cfg.FailedRetention = defaults.FailedRetention
		}
		if cfg.CleanupInterval <= 0 {
			cfg.CleanupInterval = defaults.CleanupInterval
		}
		if cfg.LookbackDays <= 0 {
			cfg.LookbackDays = defaults.LookbackDays
		}
		if cfg.PostsTTL <= 0 {
			cfg.PostsTTL = defaults.PostsTTL
		}
		if cfg.ResultTTL <= 0 {
			cfg.ResultTTL = defaults.ResultTTL
		}
		config = &cfg
	}
	if deps.Breakers == nil {
		deps.Breakers = resilience.NewBreakerRegistry(resilience.DefaultBreakerSettings())
	}
	if deps.Retrier == nil {
		deps.Retrier = resilience.NewRetrier(resilience.DefaultRetryConfig())
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NewRecorder(metrics.DefaultBufferSize)
	}
	if deps.Tracer == nil {
		deps.Tracer = tracing.Noop()
	}

	s := &Service{
		adapters:   deps.Adapters,
		analyzer:   deps.Analyzer,
		store:      deps.Store,
		breakers:   deps.Breakers,
		retrier:    deps.Retrier,
		recorder:   deps.Recorder,
		collectors: deps.Collectors,
		tracer:     deps.Tracer,
		archive:    deps.Archive,
		logger:     logging.GetLogger(),
		config:     config,
		scans:      make(map[string]*types.ScanResult),
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s, nil
}

// StartScan validates presence of the user id, registers a pending
// ScanResult, and launches the scan as a background task. It returns
// immediately; failures inside the scan are recorded on the result and
// never surface here.
func (s *Service) StartScan(ctx context.Context, userID string, opts types.ScanOptions) (*types.ScanResult, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user id is required")
	}

	platforms := opts.Platforms
	if len(platforms) == 0 {
		platforms = s.adapters.Platforms()
	}
	for _, p := range platforms {
		if !p.Valid() {
			return nil, errors.NewValidationError(fmt.Sprintf("unknown platform %q", p))
		}
	}
	if len(platforms) == 0 {
		return nil, errors.NewValidationError("no platforms requested and none registered")
	}
	opts.Platforms = platforms
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = s.config.LookbackDays
	}

	result := &types.ScanResult{
		ID:        uuid.New().String(),
		UserID:    userID,
		Platforms: platforms,
		StartTime: s.now(),
		Status:    types.ScanStatusPending,
	}

	s.mu.Lock()
	s.scans[result.ID] = result
	s.mu.Unlock()
	s.persistResult(result)

	if s.collectors != nil {
		s.collectors.ActiveScans.Inc()
	}
	s.logger.LogScanEvent(ctx, "scan_submitted", result.ID, userID, map[string]interface{}{
		"platforms":     platforms,
		"lookback_days": opts.LookbackDays,
		"competitors":   len(opts.CompetitorIDs),
	})

	s.wg.Add(1)
	go s.runScan(result.ID, userID, opts)

	return result.Clone(), nil
}

// GetScanResult returns the scan with the given id, preferring the
// cache and falling back to the in-memory map. Whichever side is
// missing the value is repaired. Cache failures degrade to the map and
// are never surfaced.
func (s *Service) GetScanResult(ctx context.Context, scanID string) (*types.ScanResult, error) {
	var cached types.ScanResult
	err := s.store.Get(ctx, resultCacheKey(scanID), &cached)
	if err == nil {
		s.mu.Lock()
		if _, ok := s.scans[scanID]; !ok {
			s.scans[scanID] = cached.Clone()
		}
		s.mu.Unlock()
		return &cached, nil
	}
	if !errors.IsType(err, errors.ErrorTypeNotFound) {
		s.logger.Warn("scan result cache read failed, using in-memory state",
			"scan_id", scanID, "error", err.Error())
	}

	s.mu.RLock()
	result, ok := s.scans[scanID]
	var clone *types.ScanResult
	if ok {
		clone = result.Clone()
	}
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("scan %s", scanID))
	}

	// Read-repair the cache.
	s.persistResult(clone)
	return clone, nil
}

// InvalidateUserCache removes every cached fetch keyed to the platform
// and user, plus the user's profile entry. Returns the number of
// entries removed. Keys are matched exactly, one per kind, so a
// neighboring account id that shares this one as a string prefix is
// never touched.
func (s *Service) InvalidateUserCache(ctx context.Context, p types.Platform, userID string) (int, error) {
	if !p.Valid() {
		return 0, errors.NewValidationError(fmt.Sprintf("unknown platform %q", p))
	}
	if userID == "" {
		return 0, errors.NewValidationError("user id is required")
	}

	removed := 0
	for _, kind := range []string{kindUserPosts, kindCompetitorPosts, kindProfile} {
		ok, err := s.store.Delete(ctx, fetchCacheKey(kind, p, userID))
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}

	s.logger.Info("user cache invalidated",
		"platform", string(p), "user_id", userID, "entries_removed", removed)
	return removed, nil
}

// BreakerSnapshot exposes the current circuit breaker states for
// diagnostics endpoints.
func (s *Service) BreakerSnapshot() []resilience.BreakerSnapshot {
	return s.breakers.Snapshot()
}

// Destroy stops the cleanup loop, detaches running scans, and releases
// in-memory state. Safe to call exactly once per instance; subsequent
// calls are no-ops.
func (s *Service) Destroy() {
	s.destroyOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()

		s.mu.Lock()
		s.scans = make(map[string]*types.ScanResult)
		s.mu.Unlock()

		s.logger.Info("scan orchestrator destroyed")
	})
}

// Cache key layout: fetches are "{kind}_{platform}_{id}", scan results
// are "scan_result_{id}".

const (
	kindUserPosts       = "user_posts"
	kindCompetitorPosts = "competitor_posts"
	kindProfile         = "profile"
)

func fetchCacheKey(kind string, p types.Platform, id string) string {
	return fmt.Sprintf("%s_%s_%s", kind, p, id)
}

func resultCacheKey(scanID string) string {
	return "scan_result_" + scanID
}

func breakerKey(p types.Platform) string {
	return fmt.Sprintf("%s_api", p)
}

// persistResult writes the result to the cache store. Cache errors are
// logged and swallowed; the in-memory map remains authoritative.
func (s *Service) persistResult(result *types.ScanResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.Set(ctx, resultCacheKey(result.ID), result, s.config.ResultTTL); err != nil {
		s.logger.Warn("failed to persist scan result to cache",
			"scan_id", result.ID, "error", err.Error())
	}
}
