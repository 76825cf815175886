package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			if IsBodyTooLarge(err) {
				PayloadTooLarge(c, 16)
				return
			}
			InternalError(c, err.Error())
			return
		}
		c.String(http.StatusOK, string(body))
	})
	r.NoRoute(NotFound)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body struct {
		Error APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestRequestIDAssignsAndReuses(t *testing.T) {
	r := newRouter(RequestID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assigned := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(assigned)
	require.NoError(t, err)

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "not a uuid\r\n")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "not a uuid\r\n", w.Header().Get(RequestIDHeader))
}

func TestBodyLimit(t *testing.T) {
	r := newRouter(BodyLimit(16))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "small", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 17))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, ErrCodePayloadTooLarge, decodeError(t, w).Code)

	// unknown length is cut off while reading
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "limit 10kb", formatBytes(10240))
	assert.Equal(t, "limit 100 bytes", formatBytes(100))
}

func TestSecurityHeaders(t *testing.T) {
	r := newRouter(SecurityHeaders())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
}

func TestNotFound(t *testing.T) {
	r := newRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, ErrCodeNotFound, apiErr.Code)
	assert.Equal(t, "/missing", apiErr.Details)
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(RequestID(), RequestLogger(zap.New(core)))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping?x=1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request", entries[0].Message)
	assert.Equal(t, "x=1", entries[0].ContextMap()["query"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
	assert.Equal(t, "/ping", entries[0].ContextMap()["route"])
	assert.Equal(t, "client error", entries[1].Message)
	assert.Equal(t, "unmatched", entries[1].ContextMap()["route"])
}

func TestRequestLoggerQuietPaths(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(RequestLogger(zap.New(core), "/ping"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Zero(t, logs.Len(), "successful quiet path stays below Info")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ping", nil))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "client error", logs.All()[0].Message)
}

func TestRateLimiterTokenBucket(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewWindowLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	d, _ := rl.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	d, _ = rl.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = rl.Allow(ctx, "a")
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.ResetAfter)

	d, _ = rl.Allow(ctx, "b")
	assert.True(t, d.Allowed, "keys are independent")

	now = now.Add(time.Minute)
	d, _ = rl.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestRateLimiterEvictsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(4, 2, time.Minute)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		_, _ = rl.Allow(ctx, ip)
	}
	assert.Equal(t, 3, rl.Len())

	// two refills are needed to get back to four tokens
	now = now.Add(time.Minute)
	_, _ = rl.Allow(ctx, "10.0.0.1")
	assert.Equal(t, 3, rl.Len())

	now = now.Add(time.Minute)
	d, _ := rl.Allow(ctx, "10.0.0.4")
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, rl.Len(), "idle keys dropped, active key kept")

	d, _ = rl.Allow(ctx, "10.0.0.2")
	assert.True(t, d.Allowed)
	assert.Equal(t, 3, d.Remaining, "evicted key starts with a full bucket")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newRouter(RateLimitMiddleware(NewWindowLimiter(1, time.Minute), zap.NewNop()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("RateLimit-Remaining"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	apiErr := decodeError(t, w)
	assert.Equal(t, ErrCodeRateLimited, apiErr.Code)
	assert.Equal(t, 60000, apiErr.RetryAfter)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("store down")
}

func (failingLimiter) Store() string { return "test" }

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := newRouter(RateLimitMiddleware(failingLimiter{}, zap.New(core)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("rate limiter unavailable, allowing request").Len())
}

func TestRedisLimiterUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	rl := NewRedisLimiter(client, 5, time.Minute)
	_, err := rl.Allow(context.Background(), "10.0.0.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit 10.0.0.1")
}

func TestRedisLimiterWindowKey(t *testing.T) {
	rl := NewRedisLimiter(nil, 5, 15*time.Minute)
	at := time.Date(2026, 1, 1, 10, 20, 0, 0, time.UTC)

	key, reset := rl.windowKey("10.0.0.1", at)
	assert.Equal(t, "smartgenesis:ratelimit:10.0.0.1:1767262500", key)
	assert.Equal(t, 10*time.Minute, reset)
}
