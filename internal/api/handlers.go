package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipscommerce/socialscan/internal/orchestrator"
	"github.com/clipscommerce/socialscan/pkg/errors"
	"github.com/clipscommerce/socialscan/pkg/types"
)

// HistoryReader serves archived scan history. Optional; endpoints
// depending on it return 404 when no archive is configured.
type HistoryReader interface {
	RecentScans(ctx context.Context, userID string, limit int) ([]types.ScanResult, error)
}

// ScanHandler exposes the orchestrator over HTTP.
type ScanHandler struct {
	orchestrator *orchestrator.Service
	history      HistoryReader
}

// NewScanHandler creates the scan handler.
func NewScanHandler(orch *orchestrator.Service, history HistoryReader) *ScanHandler {
	return &ScanHandler{
		orchestrator: orch,
		history:      history,
	}
}

// StartScanRequest is the body of POST /scans.
type StartScanRequest struct {
	UserID          string           `json:"user_id" binding:"required"`
	Platforms       []types.Platform `json:"platforms"`
	LookbackDays    int              `json:"lookback_days"`
	IncludeOwnPosts bool             `json:"include_own_posts"`
	CompetitorIDs   []string         `json:"competitor_ids"`
}

// StartScan submits a scan and returns the pending result immediately.
func (h *ScanHandler) StartScan(c *gin.Context) {
	var req StartScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, errors.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	result, err := h.orchestrator.StartScan(c.Request.Context(), req.UserID, types.ScanOptions{
		Platforms:       req.Platforms,
		LookbackDays:    req.LookbackDays,
		IncludeOwnPosts: req.IncludeOwnPosts,
		CompetitorIDs:   req.CompetitorIDs,
	})
	if err != nil {
		ErrorResponse(c, err)
		return
	}
	CreatedResponse(c, result)
}

// GetScan returns the current state of a scan.
func (h *ScanHandler) GetScan(c *gin.Context) {
	result, err := h.orchestrator.GetScanResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		ErrorResponse(c, err)
		return
	}
	SuccessResponse(c, result)
}

// ListUserScans returns archived scan history for a user.
func (h *ScanHandler) ListUserScans(c *gin.Context) {
	if h.history == nil {
		ErrorResponse(c, errors.NewNotFoundError("scan history archive"))
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			ErrorResponse(c, errors.NewValidationError("limit must be between 1 and 100"))
			return
		}
		limit = parsed
	}

	scans, err := h.history.RecentScans(c.Request.Context(), c.Param("userId"), limit)
	if err != nil {
		ErrorResponse(c, err)
		return
	}
	SuccessResponse(c, scans)
}

// InvalidateCache removes all cached fetches for a platform+user pair.
func (h *ScanHandler) InvalidateCache(c *gin.Context) {
	removed, err := h.orchestrator.InvalidateUserCache(c.Request.Context(),
		types.Platform(c.Param("platform")), c.Param("userId"))
	if err != nil {
		ErrorResponse(c, err)
		return
	}
	SuccessResponse(c, gin.H{"entries_removed": removed})
}

// GetBreakers reports the circuit breaker states for diagnostics.
func (h *ScanHandler) GetBreakers(c *gin.Context) {
	SuccessResponse(c, h.orchestrator.BreakerSnapshot())
}

// HealthChecker reports the health of one dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler serves liveness and dependency checks.
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a health handler over named dependency checks.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health runs every registered check and reports per-dependency status.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "ok"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":       overall,
		"dependencies": deps,
		"timestamp":    time.Now(),
	})
}
