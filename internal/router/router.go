// Package router wires the engine's thin ops HTTP surface: liveness,
// readiness, and a Prometheus scrape endpoint. There is no domain API —
// requests/trips/bookings are never read or mutated over HTTP (spec's
// Non-goals exclude an HTTP API for the dispatch domain). Grounded on the
// teacher's internal/router + gin.Engine wiring in cmd/server/main.go,
// pared down to what an ops surface needs.
package router

import (
	"context"
	"net/http"
	"time"

	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/database"
	"ride-dispatch-engine/internal/logging"
	"ride-dispatch-engine/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds what the ops surface needs to answer readiness and
// serve metrics.
type Dependencies struct {
	Config *config.Config
	Logger *logging.Logger
	DB     *database.PostgresDB
	Redis  *database.RedisClient
}

// New builds the gin.Engine serving /healthz, /readyz and /metrics.
func New(deps *Dependencies) *gin.Engine {
	gin.SetMode(deps.Config.Server.Mode)

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		deps.Logger.LogPanic(recovered, "http", "request_handling", logging.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}))
	r.Use(func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	})
	r.Use(middleware.LoggingMiddleware(deps.Logger, []string{"/healthz", "/readyz"}, nil))
	if deps.Config.Server.Mode == "release" {
		r.Use(middleware.RateLimitMiddleware())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "ride-dispatch-engine",
		})
	})

	r.GET("/readyz", func(c *gin.Context) { readyz(c, deps) })

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func readyz(c *gin.Context, deps *Dependencies) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if err := deps.DB.Ping(ctx); err != nil {
		checks["postgres"] = "error"
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := deps.Redis.Ping(ctx); err != nil {
		checks["redis"] = "error"
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": map[bool]string{true: "ok", false: "error"}[healthy], "checks": checks})
}
