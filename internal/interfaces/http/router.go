// Package http wires the gin router and HTTP server for the clause API.
package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/parsing"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/review"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/application/rules"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/ClauseIQ-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates everything the router needs. Optional fields
// disable their feature when nil.
type RouterConfig struct {
	ParsingService parsing.Service
	ReviewService  review.Service
	RulesService   rules.Service

	Version        string
	HealthCheckers []handlers.HealthChecker

	Logger      logging.Logger
	Metrics     *prometheus.AppMetrics
	MetricsHTTP nethttp.Handler

	CORS        middleware.CORSConfig
	RateLimiter middleware.WindowCounter
	RateLimit   middleware.RateLimitConfig
}

// NewRouter builds the gin engine with middleware and all API routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.RequestLogging(log, cfg.Metrics))
	if cfg.RateLimiter != nil {
		router.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, log))
	}

	health := handlers.NewHealthHandler(cfg.Version, cfg.HealthCheckers...)
	router.GET("/healthz", health.Liveness)
	router.GET("/readyz", health.Readiness)
	if cfg.MetricsHTTP != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHTTP))
	}

	api := router.Group("/api/v1")

	if cfg.ParsingService != nil {
		parse := handlers.NewParseHandler(cfg.ParsingService)
		api.POST("/parse", parse.Parse)
		api.GET("/records", parse.ListRecords)
		api.GET("/records/:id", parse.GetRecord)
		api.DELETE("/records/:id", parse.DeleteRecord)
	}

	if cfg.ReviewService != nil {
		rev := handlers.NewReviewHandler(cfg.ReviewService)
		api.POST("/records/:id/corrections", rev.Submit)
		api.GET("/records/:id/corrections", rev.List)
	}

	if cfg.RulesService != nil {
		rule := handlers.NewRuleHandler(cfg.RulesService)
		api.GET("/rules", rule.List)
		api.GET("/rules/:id", rule.Get)
		api.PUT("/rules/:id/enabled", rule.SetEnabled)
	}

	return router
}
