package access

import (
	"net/http"
	"strings"

	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/platform/httputil"
	"pawnshop/pkg/requestcontext"
)

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid bearer token before any
// downstream handler runs.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
		principal, err := g.Authenticate(ctx, strings.TrimSpace(token))
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInternal) {
				g.logger.ErrorContext(ctx, "failed to authenticate request",
					"error", err,
					"request_id", requestID,
				)
			} else {
				g.logger.WarnContext(ctx, "unauthorized access",
					"error", err,
					"request_id", requestID,
				)
			}
			httputil.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

// Allow admits only roles the matrix grants for res and act. It must run
// after RequireAuth.
func (g *Gate) Allow(res Resource, act Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := PrincipalFromContext(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}
			if err := g.Authorize(principal, res, act); err != nil {
				g.logger.WarnContext(ctx, "forbidden access",
					"subject", principal.Subject,
					"role", principal.Role.String(),
					"resource", string(res),
					"action", string(act),
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
