// Package middleware holds the gin middleware used by the thin ops HTTP
// surface (internal/router). Trimmed from the teacher's fuller set to the
// pieces an ops-only surface actually exercises: request logging, CORS,
// rate limiting and security headers.
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"ride-dispatch-engine/internal/logging"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LoggingMiddleware logs every request through logger, skipping paths or
// user agents the caller doesn't want noise from (health-check probes).
func LoggingMiddleware(logger *logging.Logger, skipPaths []string, skipUserAgents []string) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		for _, skipPath := range skipPaths {
			if strings.Contains(param.Path, skipPath) {
				return ""
			}
		}

		userAgent := param.Request.UserAgent()
		for _, skipUA := range skipUserAgents {
			if strings.Contains(userAgent, skipUA) {
				return ""
			}
		}

		requestID := ""
		if param.Keys != nil {
			if id, exists := param.Keys["request_id"]; exists {
				if idStr, ok := id.(string); ok {
					requestID = idStr
				}
			}
		}

		logger.LogHTTPRequest(
			param.Method,
			param.Path,
			userAgent,
			requestID,
			param.StatusCode,
			param.Latency.Milliseconds(),
			logging.Fields{
				"client_ip": param.ClientIP,
				"body_size": param.BodySize,
			},
		)

		return ""
	})
}

// CORSMiddleware allows cross-origin scraping of /metrics.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept-Encoding, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RateLimitMiddleware throttles each client IP to a fixed request rate,
// used only in release mode so local scraping and tests are unaffected.
func RateLimitMiddleware() gin.HandlerFunc {
	var (
		mu       sync.RWMutex
		limiters = make(map[string]*rate.Limiter)
	)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			mu.Lock()
			if len(limiters) > 1000 {
				limiters = make(map[string]*rate.Limiter)
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		mu.RLock()
		limiter, exists := limiters[clientIP]
		mu.RUnlock()

		if !exists {
			limiter = rate.NewLimiter(rate.Every(time.Minute/100), 10)
			mu.Lock()
			limiters[clientIP] = limiter
			mu.Unlock()
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// SecurityMiddleware sets a minimal set of security headers.
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
