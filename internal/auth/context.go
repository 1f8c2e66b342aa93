package auth

import (
	"context"

	"loyalty-platform/internal/rbac"
)

type identityKey struct{}

// WithIdentity attaches the resolved identity to the request context.
// Downstream handlers read it back with IdentityFrom instead of
// re-deriving identity from propagation headers.
func WithIdentity(ctx context.Context, id rbac.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached by the gate, if any.
func IdentityFrom(ctx context.Context) (rbac.Identity, bool) {
	v := ctx.Value(identityKey{})
	id, ok := v.(rbac.Identity)
	return id, ok
}
