package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)
		defer limiter.Stop()

		for i := 0; i < 3; i++ {
			ok, remaining, err := limiter.Allow(ctx, "client")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 2-i, remaining)
		}
		ok, _, _ := limiter.Allow(ctx, "client")
		assert.False(t, ok)
	})

	t.Run("separate limits per key", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		defer limiter.Stop()

		ok, _, _ := limiter.Allow(ctx, "a")
		assert.True(t, ok)
		ok, _, _ = limiter.Allow(ctx, "a")
		assert.False(t, ok)
		ok, _, _ = limiter.Allow(ctx, "b")
		assert.True(t, ok)
	})

	t.Run("resets after window", func(t *testing.T) {
		limiter := NewRateLimiter(1, 50*time.Millisecond)
		defer limiter.Stop()

		ok, _, _ := limiter.Allow(ctx, "c")
		assert.True(t, ok)
		ok, _, _ = limiter.Allow(ctx, "c")
		assert.False(t, ok)

		time.Sleep(60 * time.Millisecond)
		ok, _, _ = limiter.Allow(ctx, "c")
		assert.True(t, ok)
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)
		defer limiter.Stop()

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0
		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _, _ := limiter.Allow(ctx, "shared"); ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, allowed)
	})
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	defer client.Close()

	limiter := NewRedisRateLimiter(client, 2, time.Minute)
	ctx := context.Background()

	ok, remaining, err := limiter.Allow(ctx, "tenant:user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	ok, _, _ = limiter.Allow(ctx, "tenant:user")
	assert.True(t, ok)
	ok, remaining, _ = limiter.Allow(ctx, "tenant:user")
	assert.False(t, ok)
	assert.Zero(t, remaining)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))

	t.Run("fails open when redis is down", func(t *testing.T) {
		mr.Close()
		ok, _, err := limiter.Allow(ctx, "tenant:user")
		assert.Error(t, err)
		assert.True(t, ok)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	defer limiter.Stop()

	router := gin.New()
	router.Use(RateLimit(limiter))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
}
