package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksred/tradeplan/pkg/response"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.RWMutex

	// Configure limits per endpoint type
	statusLimit = rate.Limit(1000.0 / 60.0) // 1000 requests per minute
	queryLimit  = rate.Limit(120.0 / 60.0)  // 120 requests per minute
	pnlLimit    = rate.Limit(30.0 / 60.0)   // 30 requests per minute
)

// Cleanup old visitors periodically
func init() {
	go cleanupVisitors()
}

func limitFor(path string) rate.Limit {
	switch {
	case strings.HasPrefix(path, "/api/v1/status"):
		return statusLimit
	case strings.HasPrefix(path, "/api/v1/pnl"):
		return pnlLimit
	case strings.HasPrefix(path, "/api/v1/schedules"), strings.HasPrefix(path, "/api/v1/templates"):
		return queryLimit
	}
	return rate.Inf
}

func getLimiter(path, clientIP string) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	key := clientIP + ":" + path
	v, exists := visitors[key]

	if !exists {
		v = &visitor{
			limiter:  rate.NewLimiter(limitFor(path), 5),
			lastSeen: time.Now(),
		}
		visitors[key] = v
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for ip, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, ip)
			}
		}
		mu.Unlock()
	}
}

// RateLimit limits each client per route.
func RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := getLimiter(c.FullPath(), c.ClientIP())
		if !limiter.Allow() {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequestLogger logs one line per request through zerolog.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := zlog.Info()
		if c.Writer.Status() >= 500 {
			event = zlog.Error()
		}
		event.
			Str("service", "http").
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
