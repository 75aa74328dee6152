package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RealIP())
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})
	return r
}

const (
	publicPeer = "203.0.113.7:5555"
	proxyPeer  = "10.0.0.2:5555"
)

func get(r http.Handler, hdr map[string]string) *httptest.ResponseRecorder {
	return getFrom(r, publicPeer, hdr)
}

func getFrom(r http.Handler, peer string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = peer
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestIDMiddleware())

	w := get(r, nil)
	require.NotEmpty(t, w.Body.String())
	require.Equal(t, w.Body.String(), w.Header().Get("X-Request-ID"))

	const id = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	w = get(r, map[string]string{"X-Request-ID": id})
	require.Equal(t, id, w.Body.String())

	w = get(r, map[string]string{"X-Request-ID": "<script>"})
	require.NotEqual(t, "<script>", w.Body.String())
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := newEngine(RateLimit(rdb, 2, time.Minute, KeyByIP(), nil))

	require.Equal(t, http.StatusOK, get(r, nil).Code)
	w := get(r, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = get(r, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

	// another client behind our proxy has its own window
	require.Equal(t, http.StatusOK, getFrom(r, proxyPeer, map[string]string{"X-Forwarded-For": "198.51.100.1"}).Code)

	mr.FastForward(time.Minute + time.Second)
	require.Equal(t, http.StatusOK, get(r, nil).Code)
}

func TestRateLimitFailsOpenAndBypass(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := newEngine(RateLimit(rdb, 1, time.Minute, KeyByIP(), AllowPrivateIP()))

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, getFrom(r, proxyPeer, nil).Code)
	}

	mr.Close()
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, get(r, nil).Code)
	}

	require.Equal(t, http.StatusOK, get(newEngine(RateLimit(nil, 1, time.Minute, KeyByIP(), nil)), nil).Code)
}

func TestRequireAllowed(t *testing.T) {
	r := newEngine(RequireAllowed(AllowPrivateIP()))
	require.Equal(t, http.StatusForbidden, get(r, nil).Code)
	require.Equal(t, http.StatusOK, getFrom(r, "127.0.0.1:4000", nil).Code)
	require.Equal(t, http.StatusOK, getFrom(r, proxyPeer, map[string]string{"X-Forwarded-For": "192.168.1.10, 203.0.113.7"}).Code)
	require.Equal(t, http.StatusForbidden, getFrom(r, proxyPeer, map[string]string{"CF-Connecting-IP": "203.0.113.9"}).Code)
	// spoofed headers from a public peer are ignored
	require.Equal(t, http.StatusForbidden, get(r, map[string]string{"X-Forwarded-For": "10.0.0.5"}).Code)
}
