// ABOUTME: HTTP middleware applying the Limiter to authenticated requests
// ABOUTME: Sets X-RateLimit-* headers and answers 429 with JSON-RPC code -32000 when exhausted

package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/pipedrive-gateway/internal/auth"
	"github.com/2389/pipedrive-gateway/internal/jsonrpc"
	"github.com/2389/pipedrive-gateway/internal/metrics"
)

// Response header names.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// FormatReset renders a reset time as ISO-8601 UTC with millisecond precision.
func FormatReset(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Middleware enforces the limiter for requests carrying an authenticated
// principal. Anonymous requests pass through untouched. Must run after
// auth.Middleware.
func Middleware(l *Limiter, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.FromContext(r.Context())
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			result := l.Check(principal.ID)
			reset := FormatReset(result.ResetAt)

			w.Header().Set(HeaderLimit, strconv.Itoa(result.Limit))
			w.Header().Set(HeaderRemaining, strconv.Itoa(result.Remaining))
			w.Header().Set(HeaderReset, reset)

			if !result.Allowed {
				logger.Warn("rate limit exceeded",
					"principal_id", principal.ID,
					"reset_at", reset,
				)
				m.RateLimited()
				rpcErr := jsonrpc.NewError(jsonrpc.CodeRateLimited, "Rate limit exceeded",
					fmt.Sprintf("Too many requests. Limit resets at %s", reset))
				if err := jsonrpc.WriteError(w, http.StatusTooManyRequests, jsonrpc.PeekID(r), rpcErr); err != nil {
					logger.Warn("failed to encode rate limit response", "error", err)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
