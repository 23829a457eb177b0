// ABOUTME: Bearer token authenticator resolving Authorization headers to principals
// ABOUTME: Produces the client-facing rejection reasons and logs every attempt with a masked token

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/2389/pipedrive-gateway/internal/metrics"
	"github.com/2389/pipedrive-gateway/internal/store"
)

// Rejection reasons returned to clients in the JSON-RPC error data.
const (
	ReasonMissingHeader = "Missing Authorization header"
	ReasonInvalidFormat = "Invalid Authorization header format. Use: Bearer <token>"
	ReasonMissingToken  = "Missing bearer token"
	ReasonInvalidToken  = "Invalid bearer token"
)

const bearerPrefix = "Bearer "

// Authenticator validates bearer tokens against a PrincipalStore.
type Authenticator struct {
	store   store.PrincipalStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAuthenticator creates an Authenticator. logger and m may be nil.
func NewAuthenticator(s store.PrincipalStore, logger *slog.Logger, m *metrics.Metrics) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{store: s, logger: logger, metrics: m}
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and a rejection reason (empty if successful).
// The scheme match is case-sensitive and requires exactly one space.
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", ReasonMissingHeader
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ReasonInvalidFormat
	}
	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ReasonMissingToken
	}
	return token, ""
}

// Authenticate resolves the Authorization header value. On success the
// principal's LastUsed is refreshed by the store. On failure the reason is
// one of the Reason* constants and the principal is nil.
func (a *Authenticator) Authenticate(ctx context.Context, authHeader, remoteAddr string) (*store.Principal, string) {
	token, reason := extractBearerToken(authHeader)
	if reason != "" {
		a.logger.Warn("authentication rejected", "reason", reason, "remote_addr", remoteAddr)
		a.metrics.AuthAttempt(outcomeFor(reason))
		return nil, reason
	}

	principal, err := a.store.Authenticate(ctx, token)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.logger.Error("principal lookup failed", "error", err, "remote_addr", remoteAddr)
		}
		a.logger.Warn("authentication rejected",
			"reason", ReasonInvalidToken,
			"token", MaskToken(token),
			"remote_addr", remoteAddr,
		)
		a.metrics.AuthAttempt(outcomeFor(ReasonInvalidToken))
		return nil, ReasonInvalidToken
	}

	a.logger.Debug("authenticated",
		"principal_id", principal.ID,
		"principal_name", principal.Name,
		"token", MaskToken(token),
		"remote_addr", remoteAddr,
	)
	a.metrics.AuthAttempt("success")
	return principal, ""
}

func outcomeFor(reason string) string {
	switch reason {
	case ReasonMissingHeader:
		return "missing_header"
	case ReasonInvalidFormat:
		return "invalid_format"
	case ReasonMissingToken:
		return "missing_token"
	default:
		return "invalid_token"
	}
}

// MaskToken shortens a secret for logs: the first 8 and last 4 characters
// around an ellipsis. Tokens too short to mask safely are fully hidden.
func MaskToken(token string) string {
	if len(token) < 16 {
		return "***"
	}
	return token[:8] + "..." + token[len(token)-4:]
}
