package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clipscommerce/socialscan/pkg/errors"
	"github.com/clipscommerce/socialscan/pkg/metrics"
	"github.com/clipscommerce/socialscan/pkg/types"
)

type scanOutcome struct {
	metrics *types.ScanMetrics
	err     error
}

// runScan drives one scan to a terminal state. The fetch pipeline races
// against the scan timeout; if the timeout wins, the scan is marked
// failed and the pipeline is abandoned, not cancelled: its in-flight
// fetches run to completion and their late result is discarded.
func (s *Service) runScan(scanID, userID string, opts types.ScanOptions) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.finalize(scanID, nil, errors.NewScanError(scanID, fmt.Sprintf("scan panicked: %v", r)))
		}
	}()

	s.setStatus(scanID, types.ScanStatusInProgress)
	started := s.now()

	// No deadline on this context: cancellation does not propagate into
	// adapters. The timeout below only decides the scan's outcome.
	ctx := context.Background()
	ctx, span := s.tracer.StartScanSpan(ctx, "run", scanID, userID)
	defer span.End()

	outcomeCh := make(chan scanOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcomeCh <- scanOutcome{err: errors.NewScanError(scanID, fmt.Sprintf("scan pipeline panicked: %v", r))}
			}
		}()
		m, err := s.collect(ctx, userID, opts)
		outcomeCh <- scanOutcome{metrics: m, err: err}
	}()

	timer := time.NewTimer(s.config.ScanTimeout)
	defer timer.Stop()

	select {
	case outcome := <-outcomeCh:
		if outcome.err != nil {
			s.tracer.RecordError(span, outcome.err)
		}
		s.finalize(scanID, outcome.metrics, outcome.err)
	case <-timer.C:
		err := errors.NewTimeoutError(fmt.Sprintf("scan %s", scanID))
		s.tracer.RecordError(span, err)
		s.finalize(scanID, nil, err)
	case <-s.stopCh:
		// Orchestrator is being destroyed; leave the scan as-is.
		return
	}

	s.recorder.Record(metrics.Sample{
		Operation: "scan",
		StartedAt: started,
		Duration:  s.now().Sub(started),
		Success:   s.status(scanID) == types.ScanStatusCompleted,
	})
}

// collect runs the fetch fan-out for every requested platform and hands
// the merged posts to the analysis engine. Individual fetch failures
// are isolated; only a panic or an analysis-level problem fails the
// scan as a whole.
func (s *Service) collect(ctx context.Context, userID string, opts types.ScanOptions) (*types.ScanMetrics, error) {
	var (
		mu    sync.Mutex
		posts []types.Post
		wg    sync.WaitGroup
	)
	add := func(fetched []types.Post) {
		mu.Lock()
		posts = append(posts, fetched...)
		mu.Unlock()
	}

	for _, p := range opts.Platforms {
		if opts.IncludeOwnPosts {
			wg.Add(1)
			go func(p types.Platform) {
				defer wg.Done()
				fetched, err := s.fetchSafely(ctx, kindUserPosts, p, userID, opts.LookbackDays)
				if err != nil {
					s.logger.Warn("own-posts fetch failed, excluded from scan",
						"platform", string(p), "user_id", userID, "error", err.Error())
					return
				}
				add(fetched)
			}(p)
		}

		// Competitor fetches for a platform are issued together; their
		// completion order is unconstrained and one failure never
		// aborts the others.
		for _, competitorID := range opts.CompetitorIDs {
			wg.Add(1)
			go func(p types.Platform, competitorID string) {
				defer wg.Done()
				fetched, err := s.fetchSafely(ctx, kindCompetitorPosts, p, competitorID, opts.LookbackDays)
				if err != nil {
					s.logger.Warn("competitor fetch failed, excluded from scan",
						"platform", string(p), "competitor_id", competitorID, "error", err.Error())
					return
				}
				add(fetched)
			}(p, competitorID)
		}
	}
	wg.Wait()

	return s.analyzer.Analyze(posts), nil
}

// fetchSafely converts a panicking adapter into an ordinary fetch
// failure so one misbehaving source cannot take down the process.
func (s *Service) fetchSafely(ctx context.Context, kind string, p types.Platform, targetID string, lookbackDays int) (posts []types.Post, err error) {
	defer func() {
		if r := recover(); r != nil {
			posts, err = nil, errors.NewInternalError(fmt.Sprintf("fetch panicked: %v", r))
		}
	}()
	return s.fetchPosts(ctx, kind, p, targetID, lookbackDays)
}

// fetchPosts resolves one fetch through cache, circuit breaker and
// retry. A breaker refusal degrades to an empty result with a warning;
// exhausted retries trip the breaker and return the last error so the
// caller can exclude this source.
func (s *Service) fetchPosts(ctx context.Context, kind string, p types.Platform, targetID string, lookbackDays int) ([]types.Post, error) {
	cacheKey := fetchCacheKey(kind, p, targetID)
	bKey := breakerKey(p)
	started := s.now()

	ctx, span := s.tracer.StartFetchSpan(ctx, string(p), kind, targetID)
	defer span.End()

	var cachedPosts []types.Post
	getCtx, getSpan := s.tracer.StartCacheSpan(ctx, "get", cacheKey)
	err := s.store.Get(getCtx, cacheKey, &cachedPosts)
	getSpan.End()
	if err == nil {
		s.observeFetch(kind, p, targetID, started, true, true, len(cachedPosts))
		return cachedPosts, nil
	}
	if !errors.IsType(err, errors.ErrorTypeNotFound) {
		// Cache trouble is treated as a miss, never propagated.
		s.logger.Warn("post cache read failed, treating as miss",
			"cache_key", cacheKey, "error", err.Error())
	}

	if !s.breakers.Allow(bKey) {
		s.logger.Warn("circuit breaker open, returning empty result",
			"breaker_key", bKey, "cache_key", cacheKey)
		if s.collectors != nil {
			s.collectors.FetchesTotal.WithLabelValues(string(p), kind, "circuit_open").Inc()
		}
		s.observeBreaker(bKey)
		return []types.Post{}, nil
	}

	adapter, err := s.adapters.Get(p)
	if err != nil {
		return nil, err
	}

	var fetched []types.Post
	err = s.retrier.Do(ctx, cacheKey, func(ctx context.Context) error {
		var fetchErr error
		switch kind {
		case kindCompetitorPosts:
			fetched, fetchErr = adapter.GetCompetitorPosts(ctx, targetID, lookbackDays)
		default:
			fetched, fetchErr = adapter.GetUserPosts(ctx, targetID, lookbackDays)
		}
		return fetchErr
	})
	if err != nil {
		s.tracer.RecordError(span, err)
		s.breakers.RecordFailure(bKey)
		s.observeBreaker(bKey)
		s.observeFetch(kind, p, targetID, started, false, false, 0)
		return nil, err
	}

	s.breakers.RecordSuccess(bKey)
	s.observeBreaker(bKey)

	setCtx, setSpan := s.tracer.StartCacheSpan(ctx, "set", cacheKey)
	if err := s.store.Set(setCtx, cacheKey, fetched, s.config.PostsTTL); err != nil {
		s.logger.Warn("failed to cache fetched posts",
			"cache_key", cacheKey, "error", err.Error())
	}
	setSpan.End()

	s.observeFetch(kind, p, targetID, started, true, false, len(fetched))
	return fetched, nil
}

func (s *Service) observeFetch(kind string, p types.Platform, targetID string, started time.Time, success, cacheHit bool, items int) {
	duration := s.now().Sub(started)

	s.recorder.Record(metrics.Sample{
		Operation:    "fetch_" + kind,
		Platform:     string(p),
		StartedAt:    started,
		Duration:     duration,
		Success:      success,
		CacheHit:     metrics.BoolPtr(cacheHit),
		ItemsFetched: items,
	})
	s.logger.LogFetchEvent(context.Background(), string(p), kind, targetID, success, duration, nil)

	if s.collectors == nil {
		return
	}
	outcome := "success"
	if cacheHit {
		outcome = "cache_hit"
	} else if !success {
		outcome = "failure"
	}
	s.collectors.FetchesTotal.WithLabelValues(string(p), kind, outcome).Inc()
	s.collectors.FetchDuration.WithLabelValues(string(p), kind).Observe(duration.Seconds())
	if !success {
		s.collectors.ErrorsTotal.WithLabelValues("orchestrator", "fetch").Inc()
	}
}

func (s *Service) observeBreaker(key string) {
	if s.collectors == nil {
		return
	}
	s.collectors.CircuitState.WithLabelValues(key).Set(float64(s.breakers.State(key)))
}

// setStatus advances a non-terminal scan to the given status.
func (s *Service) setStatus(scanID string, status types.ScanStatus) {
	s.mu.Lock()
	result, ok := s.scans[scanID]
	var clone *types.ScanResult
	if ok && !result.Status.Terminal() {
		result.Status = status
		clone = result.Clone()
	}
	s.mu.Unlock()

	if clone != nil {
		s.persistResult(clone)
	}
}

func (s *Service) status(scanID string) types.ScanStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if result, ok := s.scans[scanID]; ok {
		return result.Status
	}
	return ""
}

// finalize moves the scan to its terminal state and persists it. A scan
// already terminal (the timeout won the race) discards the late result.
func (s *Service) finalize(scanID string, m *types.ScanMetrics, scanErr error) {
	end := s.now()

	s.mu.Lock()
	result, ok := s.scans[scanID]
	if !ok || result.Status.Terminal() {
		s.mu.Unlock()
		return
	}
	result.EndTime = &end
	if scanErr != nil {
		result.Status = types.ScanStatusFailed
		result.Error = scanErr.Error()
	} else {
		result.Status = types.ScanStatusCompleted
		result.Metrics = m
	}
	clone := result.Clone()
	s.mu.Unlock()

	s.persistResult(clone)

	duration := end.Sub(clone.StartTime)
	if s.collectors != nil {
		s.collectors.ActiveScans.Dec()
		s.collectors.ScansTotal.WithLabelValues(string(clone.Status)).Inc()
		s.collectors.ScanDuration.WithLabelValues(string(clone.Status)).Observe(duration.Seconds())
	}

	fields := map[string]interface{}{
		"status":   string(clone.Status),
		"duration": duration.String(),
	}
	if clone.Metrics != nil {
		fields["total_posts"] = clone.Metrics.TotalPosts
	}
	if clone.Error != "" {
		fields["error"] = clone.Error
	}
	s.logger.LogScanEvent(context.Background(), "scan_finished", scanID, clone.UserID, fields)

	if s.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := s.tracer.Traced(ctx, "archive.record_scan", func(ctx context.Context) error {
			return s.archive.RecordScan(ctx, clone)
		})
		if err != nil {
			s.logger.Warn("failed to archive scan result",
				"scan_id", scanID, "error", err.Error())
		}
	}
}
