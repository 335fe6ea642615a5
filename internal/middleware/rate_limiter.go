package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"consultation-service/internal/config"
	"consultation-service/internal/utils"
)

// RateLimitFromConfig converts configured values into limiter parameters.
func RateLimitFromConfig(cfg config.RateLimitConfig) (rate.Limit, int) {
	return rate.Limit(cfg.RequestsPerSecond), cfg.Burst
}

// IPRateLimiter keeps a token-bucket limiter per client IP.
type IPRateLimiter struct {
	mu  sync.Mutex
	ips map[string]*visitor
	r   rate.Limit
	b   int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates a limiter allowing r requests per second with
// burst b per IP. Idle entries are evicted in the background.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	l := &IPRateLimiter{
		ips: make(map[string]*visitor),
		r:   r,
		b:   b,
	}
	go l.cleanupVisitors()
	return l
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.ips[ip]
	if !exists {
		limiter := rate.NewLimiter(l.r, l.b)
		l.ips[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors drops IPs that have been idle for a few minutes.
func (l *IPRateLimiter) cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		l.mu.Lock()
		for ip, v := range l.ips {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(l.ips, ip)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit rejects requests above the per-IP budget with 429.
func RateLimit(l *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.getLimiter(c.ClientIP()).Allow() {
			utils.TooManyRequests(c, "Too many requests, slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}
