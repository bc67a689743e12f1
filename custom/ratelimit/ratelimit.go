package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/romana/rlog"

	"slopcel/constants"
)

type Config struct {
	Limit  int
	Window time.Duration
}

// Presets used across the API surface.
var (
	Strict   = Config{Limit: 5, Window: time.Minute}
	Standard = Config{Limit: 30, Window: time.Minute}
	Relaxed  = Config{Limit: 100, Window: time.Minute}
)

type Result struct {
	Allowed   bool
	Remaining int
	// ResetEpoch is the unix second at which the current window ends.
	ResetEpoch int64
}

type entry struct {
	count       int
	windowStart time.Time
}

// Limiter is a per-process fixed-window counter. Best effort only: state is
// lost on restart and not shared across instances.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	// checks since the last expired-entry sweep
	sinceSweep int
	now        func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Check counts one hit against key and reports whether it is within cfg.
func (l *Limiter) Check(key string, cfg Config) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sinceSweep++
	if l.sinceSweep >= 1000 {
		l.sweep(now, cfg.Window)
		l.sinceSweep = 0
	}

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= cfg.Window {
		e = &entry{windowStart: now}
		l.entries[key] = e
	}
	reset := e.windowStart.Add(cfg.Window).Unix()

	if e.count >= cfg.Limit {
		return Result{Allowed: false, Remaining: 0, ResetEpoch: reset}
	}
	e.count++
	return Result{Allowed: true, Remaining: cfg.Limit - e.count, ResetEpoch: reset}
}

// sweep drops entries whose window has passed. Runs under mu. The window of
// the triggering config is used as an upper bound; entries from buckets with
// shorter windows just live slightly longer.
func (l *Limiter) sweep(now time.Time, window time.Duration) {
	for k, e := range l.entries {
		if now.Sub(e.windowStart) >= window {
			delete(l.entries, k)
		}
	}
}

// Middleware applies cfg per client IP under the given logical bucket and
// writes X-RateLimit headers on every response.
func Middleware(l *Limiter, bucket string, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bucket + ":" + c.ClientIP()
		res := l.Check(key, cfg)

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", res.ResetEpoch))

		if !res.Allowed {
			rlog.Infof("Rate limit exceeded for %s", key)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": constants.RATE_LIMIT_EXCEEDED})
			return
		}
		c.Next()
	}
}
