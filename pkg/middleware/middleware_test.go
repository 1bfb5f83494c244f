package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLimitFor(t *testing.T) {
	assert.Equal(t, statusLimit, limitFor("/api/v1/status"))
	assert.Equal(t, pnlLimit, limitFor("/api/v1/pnl"))
	assert.Equal(t, queryLimit, limitFor("/api/v1/templates/:name"))
	assert.Equal(t, rate.Inf, limitFor("/healthz"))
}

func TestRateLimitRejectsAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit())
	r.GET("/api/v1/pnl", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pnl", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{200, 200, 200, 200, 200, http.StatusTooManyRequests}, codes)
}
