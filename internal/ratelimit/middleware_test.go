// ABOUTME: Tests for the rate limit HTTP middleware
// ABOUTME: Verifies headers, the 429 body and the anonymous bypass

package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/pipedrive-gateway/internal/auth"
	"github.com/2389/pipedrive-gateway/internal/store"
)

func authedRequest(principalID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	return req.WithContext(auth.WithPrincipal(req.Context(), &store.Principal{ID: principalID}))
}

func TestMiddleware_SetsHeaders(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, 3, time.Minute, clock)
	handler := Middleware(l, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("alice", `{}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get(HeaderLimit))
	assert.Equal(t, "2", rec.Header().Get(HeaderRemaining))
	assert.Equal(t, "2026-05-01T09:01:00.000Z", rec.Header().Get(HeaderReset))
}

func TestMiddleware_Exceeded(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, 100, time.Minute, clock)

	calls := 0
	handler := Middleware(l, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 100; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest("alice", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("alice", `{"jsonrpc":"2.0","id":101,"method":"tools/list"}`))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 100, calls, "denied request never reaches the handler")
	assert.Equal(t, "0", rec.Header().Get(HeaderRemaining))

	var body struct {
		ID    int `json:"id"`
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    string `json:"data"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 101, body.ID)
	assert.Equal(t, -32000, body.Error.Code)
	assert.Equal(t, "Rate limit exceeded", body.Error.Message)
	assert.Equal(t, "Too many requests. Limit resets at 2026-05-01T09:01:00.000Z", body.Error.Data)
}

func TestMiddleware_AnonymousBypass(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, 1, time.Minute, clock)

	handler := Middleware(l, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(HeaderLimit))
	}
	assert.Equal(t, 0, l.Len())
}

func TestFormatReset(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 678_000_000, time.FixedZone("X", 3600))
	assert.Equal(t, "2026-01-02T02:04:05.678Z", FormatReset(ts))
}
