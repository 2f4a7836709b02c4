package server

import (
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "cross-origin", resp.Header.Get("Cross-Origin-Resource-Policy"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestHealthChecks(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, raw, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, map[string]string{"database": "healthy", "redis": "healthy"}, body.Checks)

	t.Run("redis down", func(t *testing.T) {
		ts.srv.redis = redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		resp, raw := ts.do(http.MethodGet, "/health/ready", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		decode(t, raw, &body)
		assert.Equal(t, "unhealthy", body.Checks["redis"])
	})
}

func TestReadinessWithoutRedis(t *testing.T) {
	ts := newTestServer(t)
	ts.srv.redis = nil

	resp, raw := ts.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"redis":"unavailable"`)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorBody(t, raw).Code)
}
