package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"stockpos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ipLimiters hands out one token bucket per client IP and forgets IPs that
// have been idle for longer than idleTTL.
type ipLimiters struct {
	mu      sync.Mutex
	entries map[string]*ipEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	// retryAfter is the refill time of one token, in whole seconds.
	retryAfter string
}

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiters(perMinute int) *ipLimiters {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &ipLimiters{
		entries:    make(map[string]*ipEntry),
		limit:      rate.Every(time.Minute / time.Duration(perMinute)),
		burst:      perMinute,
		idleTTL:    5 * time.Minute,
		retryAfter: strconv.Itoa((60 + perMinute - 1) / perMinute),
	}
}

func (l *ipLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

// purge drops idle entries and returns how many were removed.
func (l *ipLimiters) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.entries, ip)
			n++
		}
	}
	return n
}

func (l *ipLimiters) middleware(msg string) gin.HandlerFunc {
	var calls int
	var callsMu sync.Mutex
	return func(c *gin.Context) {
		now := time.Now()

		callsMu.Lock()
		calls++
		if calls%1000 == 0 {
			if n := l.purge(now); n > 0 {
				log.Debug().Int("purged", n).Msg("rate limiter entries purged")
			}
		}
		callsMu.Unlock()

		if !l.get(c.ClientIP(), now).AllowN(now, 1) {
			c.Header("Retry-After", l.retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login and registration attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newIPLimiters(20).middleware("Too many login attempts. Try again in a minute.")
}

// RateLimiter is the general API limiter, perMinute requests per IP.
func RateLimiter(perMinute int) gin.HandlerFunc {
	return newIPLimiters(perMinute).middleware("Too many requests. Please try again shortly.")
}
