// ABOUTME: Authentication context for tracking the calling principal through request handlers
// ABOUTME: Provides WithPrincipal/FromContext for propagating identity via context

package auth

import (
	"context"

	"github.com/2389/pipedrive-gateway/internal/store"
)

// principalContextKey is the key type for storing the Principal in context.Context.
type principalContextKey struct{}

// WithPrincipal returns a new context with the principal attached.
func WithPrincipal(ctx context.Context, p *store.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// FromContext retrieves the principal from the context, returning nil if not present.
func FromContext(ctx context.Context) *store.Principal {
	val := ctx.Value(principalContextKey{})
	if val == nil {
		return nil
	}
	p, ok := val.(*store.Principal)
	if !ok {
		return nil
	}
	return p
}
