// ABOUTME: Store interface and data types for pipedrive-gateway principals
// ABOUTME: Defines Principal, the masked listing view, usage stats and the PrincipalStore interface

package store

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateToken is returned when a bearer token is already registered
var ErrDuplicateToken = errors.New("bearer token already registered")

// ErrInvalidUpstreamToken is returned when a Pipedrive API token is malformed
var ErrInvalidUpstreamToken = errors.New("invalid Pipedrive API token format")

// BearerTokenPrefix starts every generated bearer token.
const BearerTokenPrefix = "mcp_"

// upstreamTokenPattern matches Pipedrive personal API tokens (40 hex characters).
var upstreamTokenPattern = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)

// Principal is an authenticated caller bound to one Pipedrive credential.
type Principal struct {
	ID            string
	BearerToken   string
	UpstreamToken string
	Name          string
	Email         string
	CreatedAt     time.Time
	LastUsed      *time.Time
}

// NewPrincipal holds the caller-supplied fields for CreatePrincipal.
type NewPrincipal struct {
	Name          string
	Email         string
	UpstreamToken string
}

// PrincipalListing is the admin view of a principal with the upstream credential masked.
type PrincipalListing struct {
	ID            string     `json:"id"`
	BearerToken   string     `json:"bearerToken"`
	UpstreamToken string     `json:"pipedriveApiToken"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastUsed      *time.Time `json:"lastUsed,omitempty"`
}

// Stats summarizes the registered principals.
type Stats struct {
	TotalUsers  int     `json:"totalUsers"`
	ActiveToday int     `json:"activeToday"`
	AverageAge  float64 `json:"averageAge"` // days since creation
}

// PrincipalStore resolves bearer tokens and manages the principal registry.
type PrincipalStore interface {
	// Authenticate resolves a bearer token and refreshes the principal's LastUsed.
	// Returns ErrNotFound for unknown or revoked tokens.
	Authenticate(ctx context.Context, bearerToken string) (*Principal, error)

	// AddPrincipal registers a fully specified principal (config or env seeded).
	AddPrincipal(ctx context.Context, p *Principal) error

	// CreatePrincipal registers a new principal with a generated id and bearer token.
	CreatePrincipal(ctx context.Context, np NewPrincipal) (*Principal, error)

	// RevokePrincipal removes the principal owning the bearer token.
	RevokePrincipal(ctx context.Context, bearerToken string) (*Principal, error)

	// ListPrincipals returns every principal with masked upstream credentials.
	ListPrincipals(ctx context.Context) ([]PrincipalListing, error)

	// Stats reports aggregate usage.
	Stats(ctx context.Context) (Stats, error)
}

// IsValidUpstreamToken reports whether token looks like a Pipedrive API token.
func IsValidUpstreamToken(token string) bool {
	return upstreamTokenPattern.MatchString(token)
}

// MaskUpstreamToken hides all but the last four characters.
func MaskUpstreamToken(token string) string {
	if len(token) <= 4 {
		return "***"
	}
	return "***" + token[len(token)-4:]
}
