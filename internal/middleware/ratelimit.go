package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"interviewprep/internal/observability"
	contextutils "interviewprep/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds the per-identity token bucket settings
type RateLimiterConfig struct {
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration
}

// PerMinute builds a RateLimiterConfig allowing n requests per minute with the given burst
func PerMinute(n, burst int) RateLimiterConfig {
	return RateLimiterConfig{
		Rate:            rate.Limit(float64(n) / 60.0),
		Burst:           burst,
		CleanupInterval: 5 * time.Minute,
	}
}

type identityLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles authenticated callers independently of each other.
// It must run after RequireAuth.
type RateLimiter struct {
	config RateLimiterConfig
	logger *observability.Logger

	mu       sync.Mutex
	limiters map[string]*identityLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter creates a RateLimiter and starts evicting idle entries in the background
func NewRateLimiter(config RateLimiterConfig, logger *observability.Logger) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:   config,
		logger:   logger,
		limiters: make(map[string]*identityLimiter),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware returns the gin handler enforcing the limit
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		if !rl.limiterFor(id.UserID).Allow() {
			rl.logger.Warn(c.Request.Context(), "Rate limit exceeded", map[string]interface{}{
				"user_id": id.UserID,
				"path":    c.Request.URL.Path,
			})
			c.Header("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			StandardizeAppError(c, contextutils.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}

// Len reports how many identities currently hold a limiter
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiterFor(userID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if il, exists := rl.limiters[userID]; exists {
		il.lastAccess = time.Now()
		return il.limiter
	}

	limiter := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	rl.limiters[userID] = &identityLimiter{limiter: limiter, lastAccess: time.Now()}
	return limiter
}

// retryAfterSeconds is the time for one token to refill, at least a second
func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.config.Rate <= 0 {
		return 60
	}
	secs := int(math.Ceil(1.0 / float64(rl.config.Rate)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// evictIdle drops limiters untouched for two cleanup intervals
func (rl *RateLimiter) evictIdle(now time.Time) {
	ttl := rl.config.CleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for userID, il := range rl.limiters {
		if now.Sub(il.lastAccess) > ttl {
			delete(rl.limiters, userID)
		}
	}
}
