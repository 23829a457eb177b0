// ABOUTME: HTTP middleware for bearer authentication on the MCP and admin endpoints
// ABOUTME: Required, optional and admin modes; rejections are JSON-RPC shaped errors

package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/2389/pipedrive-gateway/internal/jsonrpc"
)

// Admin rejection details.
const (
	AdminReasonNotConfigured = "Admin authentication not configured"
	AdminReasonBadHeader     = "Missing or invalid Authorization header"
	AdminReasonForbidden     = "Insufficient permissions"
)

// Middleware creates an HTTP middleware that requires a valid principal bearer token.
// Rejections answer 401 with code -32001 and echo the request id when the body carries one.
func Middleware(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, reason := a.Authenticate(r.Context(), r.Header.Get("Authorization"), r.RemoteAddr)
			if reason != "" {
				writeRejection(w, r, a.logger, http.StatusUnauthorized, jsonrpc.CodeUnauthorized, "Unauthorized", reason)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// OptionalMiddleware attempts authentication but allows anonymous requests.
// Useful for endpoints that work differently for authenticated vs anonymous callers.
func OptionalMiddleware(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r) // Continue as anonymous
				return
			}

			principal, reason := a.Authenticate(r.Context(), header, r.RemoteAddr)
			if reason != "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// AdminMiddleware guards the admin API with a single shared secret.
// No secret configured answers 500, a header without the "Bearer " prefix 401
// and any other token, including an empty one, 403.
func AdminMiddleware(adminToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminToken == "" {
				logger.Error("admin request rejected: no admin token configured", "path", r.URL.Path)
				writeRejection(w, r, logger, http.StatusInternalServerError, jsonrpc.CodeInternalError, "Internal error", AdminReasonNotConfigured)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				logger.Warn("admin authentication rejected", "reason", AdminReasonBadHeader, "remote_addr", r.RemoteAddr)
				writeRejection(w, r, logger, http.StatusUnauthorized, jsonrpc.CodeUnauthorized, "Unauthorized", AdminReasonBadHeader)
				return
			}

			// An empty token after the prefix is a mismatch, not a malformed header.
			token := strings.TrimPrefix(header, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
				logger.Warn("admin authentication rejected",
					"reason", "token mismatch",
					"token", MaskToken(token),
					"remote_addr", r.RemoteAddr,
				)
				writeRejection(w, r, logger, http.StatusForbidden, jsonrpc.CodeUnauthorized, "Forbidden", AdminReasonForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRejection(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status, code int, message, reason string) {
	if err := jsonrpc.WriteError(w, status, jsonrpc.PeekID(r), jsonrpc.NewError(code, message, reason)); err != nil {
		logger.Warn("failed to encode auth rejection", "error", err)
	}
}
