package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"humanityclub/site/internal/apperr"
	"humanityclub/site/internal/respond"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// RateLimit counts requests per client IP within scope. A failing limiter
// lets the request through.
func RateLimit(limiter Limiter, scope string, limit int, window time.Duration, message string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP(), limit, window)
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			respond.Abort(c, apperr.New(apperr.KindRateLimited, message))
			return
		}
		c.Next()
	}
}
