package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
)

// WindowCounter is the shared counter behind the rate limiter, satisfied by
// the redis cache. Using the shared store makes the limit hold across API
// server replicas.
type WindowCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// RateLimitConfig bounds requests per client IP in a fixed window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// RateLimit returns a fixed-window per-IP limiter. A counter failure lets the
// request through; availability beats strict limiting here.
func RateLimit(counter WindowCounter, cfg RateLimitConfig, log logging.Logger) gin.HandlerFunc {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("ratelimit")
	if cfg.Requests <= 0 {
		cfg.Requests = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return func(c *gin.Context) {
		window := time.Now().Unix() / int64(cfg.Window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), window)

		count, err := counter.Incr(c.Request.Context(), key)
		if err != nil {
			log.Warn("Rate limit counter unavailable, allowing request", logging.Err(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := counter.Expire(c.Request.Context(), key, cfg.Window); err != nil {
				log.Warn("Rate limit window expiry failed", logging.Err(err))
			}
		}
		if count > int64(cfg.Requests) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(cfg.Window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    string(errors.ErrCodeTooManyRequests),
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
