package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit is a fixed-window per-client limiter backed by Redis, used on the
// auth endpoints to keep code issuance from being hammered. Redis being down
// degrades to letting requests through; rate limiting is throttling, not
// authorization.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, logger *slog.Logger) gin.HandlerFunc {
	if rdb == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", c.ClientIP(), c.FullPath())
		ctx := c.Request.Context()

		// The TTL is set only when the key has none, i.e. on the request
		// that opens the window. Renewing it on every hit would keep a slow
		// steady client inside one window forever.
		pipe := rdb.TxPipeline()
		count := pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		if count.Val() > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window/time.Second)))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
