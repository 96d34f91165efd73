package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nagendrasomala/quizy-gateway/internal/response"
)

// RateLimiter is a per-IP token bucket guarding the signal endpoints: a
// client scripting synthetic visibility events must not be able to flood the
// session machinery or the audit queue.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     int
	interval time.Duration
	sweepAt  time.Time
}

type bucket struct {
	tokens int
	filled time.Time
}

const staleAfter = 3 * time.Minute

// NewRateLimiter allows rate requests per interval for each client IP.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		sweepAt:  time.Now().Add(staleAfter),
	}
}

// Middleware returns the Gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.sweepAt) {
		rl.sweep(now)
		rl.sweepAt = now.Add(staleAfter)
	}

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{tokens: rl.rate, filled: now}
		rl.buckets[ip] = b
	} else if refills := int(now.Sub(b.filled) / rl.interval); refills > 0 {
		b.tokens += refills * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.filled = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets that have not been touched recently. Runs inline under
// the lock so the limiter needs no background goroutine.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, b := range rl.buckets {
		if now.Sub(b.filled) > staleAfter {
			delete(rl.buckets, ip)
		}
	}
}
