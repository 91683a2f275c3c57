package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/reminder-api/internal/middleware"
	"github.com/jwalitptl/reminder-api/pkg/logger"
	"github.com/jwalitptl/reminder-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(gin.IRouter)
}

type Config struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	MaxBodySize      int64
}

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	health    Handler
	protected []Handler
	gatherer  prometheus.Gatherer
	config    Config
}

func NewRouter(
	log *logger.Logger,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	auth *middleware.AuthMiddleware,
	health Handler,
	protected []Handler,
	config Config,
) *Router {
	engine := gin.New()

	if config.MaxBodySize <= 0 {
		config.MaxBodySize = 1 << 20
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.Metrics(m),
		middleware.ErrorHandler(log),
	)

	return &Router{
		engine:    engine,
		auth:      auth,
		health:    health,
		protected: protected,
		gatherer:  gatherer,
		config:    config,
	}
}

// Setup registers every route and returns the engine.
func (r *Router) Setup() *gin.Engine {
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	api := r.engine.Group("/api/v1")
	r.health.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	if r.config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateLimit,
			Burst: r.config.RateBurst,
		})
		protected.Use(limiter.RateLimit())
	}
	protected.Use(middleware.SizeLimit(r.config.MaxBodySize))

	for _, h := range r.protected {
		h.RegisterRoutes(protected)
	}
	return r.engine
}
