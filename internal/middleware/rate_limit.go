package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/bazaar-backend/internal/errors"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter is a per-client-IP token bucket. Idle buckets expire after ttl.
type RateLimiter struct {
	limiters *gocache.Cache
	rps      rate.Limit
	burst    int
	ttl      time.Duration
}

func NewRateLimiter(requestsPerSecond float64, burst int, ttl time.Duration) *RateLimiter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RateLimiter{
		limiters: gocache.New(ttl, ttl),
		rps:      rate.Limit(requestsPerSecond),
		burst:    burst,
		ttl:      ttl,
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Get(key); ok {
		lim := v.(*rate.Limiter)
		// 사용 중인 버킷의 만료 연장
		l.limiters.Set(key, lim, l.ttl)
		return lim
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	if err := l.limiters.Add(key, lim, l.ttl); err != nil {
		// 동시 요청이 먼저 생성함
		if v, ok := l.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.limiter(ip).Allow() {
			GetLoggerFromContext(c).Warn("Rate limit exceeded", map[string]interface{}{
				"ip":   ip,
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusTooManyRequests, apperrors.RateLimited, "Too many requests, slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}
