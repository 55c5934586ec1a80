package access

import (
	"context"

	"pawnshop/pkg/requestcontext"
)

type principalKey struct{}

// WithPrincipal stores p in ctx and mirrors it into requestcontext for
// services that only need the actor.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	return requestcontext.WithActor(ctx, p.Subject, p.Role.String())
}

// PrincipalFromContext returns the principal set by RequireAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
