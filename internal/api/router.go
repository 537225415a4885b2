package api

import (
	"github.com/gin-gonic/gin"

	"github.com/clipscommerce/socialscan/internal/orchestrator"
	"github.com/clipscommerce/socialscan/pkg/metrics"
)

// RouterConfig collects the router's collaborators.
type RouterConfig struct {
	Orchestrator *orchestrator.Service
	History      HistoryReader
	Collectors   *metrics.Collectors
	HealthChecks map[string]HealthChecker
	TracingMW    gin.HandlerFunc
	Debug        bool
}

// NewRouter creates and configures the API router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(CORSMiddleware())
	router.Use(SecurityHeadersMiddleware())
	if cfg.TracingMW != nil {
		router.Use(cfg.TracingMW)
	}

	healthHandler := NewHealthHandler(cfg.HealthChecks)
	router.GET("/health", healthHandler.Health)

	if cfg.Collectors != nil {
		router.GET("/metrics", gin.WrapH(cfg.Collectors.Handler()))
	}

	scanHandler := NewScanHandler(cfg.Orchestrator, cfg.History)
	v1 := router.Group("/api/v1")
	{
		scans := v1.Group("/scans")
		{
			scans.POST("", scanHandler.StartScan)
			scans.GET("/:id", scanHandler.GetScan)
		}

		v1.GET("/users/:userId/scans", scanHandler.ListUserScans)
		v1.DELETE("/cache/:platform/:userId", scanHandler.InvalidateCache)
		v1.GET("/breakers", scanHandler.GetBreakers)
	}

	return router
}
