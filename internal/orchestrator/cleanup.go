package orchestrator

import (
	"context"
	"time"

	"github.com/clipscommerce/socialscan/pkg/types"
)

// cleanupLoop sweeps retained scan results once at startup and then on
// every cleanup interval, until Destroy.
func (s *Service) cleanupLoop() {
	defer s.wg.Done()

	s.cleanupExpired()

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stopCh:
			return
		}
	}
}

// cleanupExpired deletes scans past their retention window from both
// the in-memory map and the cache, and returns how many were removed.
// Failed scans are kept on a much shorter leash than completed ones.
func (s *Service) cleanupExpired() int {
	now := s.now()

	s.mu.Lock()
	var expired []string
	for id, result := range s.scans {
		if !result.Status.Terminal() {
			continue
		}
		age := now.Sub(result.StartTime)
		if result.EndTime != nil {
			age = now.Sub(*result.EndTime)
		}
		retention := s.config.Retention
		if result.Status == types.ScanStatusFailed {
			retention = s.config.FailedRetention
		}
		if age >= retention {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.scans, id)
	}
	retained := len(s.scans)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, id := range expired {
		if _, err := s.store.Delete(ctx, resultCacheKey(id)); err != nil {
			s.logger.Warn("failed to delete expired scan from cache",
				"scan_id", id, "error", err.Error())
		}
	}

	// In-process stores also get an eager TTL sweep; Redis expires
	// entries on its own.
	if sweeper, ok := s.store.(interface{ Sweep() int }); ok {
		if n := sweeper.Sweep(); n > 0 {
			s.logger.Debug("expired cache entries swept", "removed", n)
		}
	}

	if s.collectors != nil {
		s.collectors.RetainedScans.Set(float64(retained))
	}
	if len(expired) > 0 {
		s.logger.Info("expired scan results cleaned up",
			"removed", len(expired), "retained", retained)
	}
	return len(expired)
}
