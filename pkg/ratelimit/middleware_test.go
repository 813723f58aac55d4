package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareLimitsPerClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := NewStore(RateLimitConfig{RPS: 0.001, Burst: 2})
	router := gin.New()
	router.Use(store.Middleware())
	router.POST("/webhook", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"))
}

func TestEvictOlderThan(t *testing.T) {
	store := NewStore(DefaultConfig())
	store.Allow("a")
	store.evictOlderThan(time.Now().Add(time.Second))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.limiters)
}
