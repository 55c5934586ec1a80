// Package access is the gate every protected request passes: it turns a bearer
// token into a Principal and checks the role matrix before any handler runs.
package access

import (
	"context"
	"log/slog"

	dErrors "pawnshop/pkg/domain-errors"
)

// TokenClaims are the verified claims the gate needs from a token.
type TokenClaims struct {
	Subject string
	Role    string
	JTI     string
}

// TokenValidator verifies a raw bearer token. Verification internals belong to
// the identity provider; the gate only consumes the result.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Gate authenticates callers and authorizes them against a Matrix.
type Gate struct {
	validator   TokenValidator
	revocations RevocationChecker
	matrix      Matrix
	logger      *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

func WithRevocationChecker(c RevocationChecker) Option {
	return func(g *Gate) { g.revocations = c }
}

func WithMatrix(m Matrix) Option {
	return func(g *Gate) { g.matrix = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// NewGate builds a gate using DefaultMatrix unless overridden.
func NewGate(validator TokenValidator, opts ...Option) *Gate {
	g := &Gate{
		validator: validator,
		matrix:    DefaultMatrix,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate verifies token and produces the caller's Principal.
func (g *Gate) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header")
	}
	claims, err := g.validator.ValidateToken(token)
	if err != nil {
		return Principal{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "Invalid or expired token")
	}
	if claims.Subject == "" {
		return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token")
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Principal{}, err
	}

	if g.revocations != nil {
		if claims.JTI == "" {
			return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token")
		}
		revoked, err := g.revocations.IsTokenRevoked(ctx, claims.JTI)
		if err != nil {
			return Principal{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
		}
		if revoked {
			return Principal{}, dErrors.New(dErrors.CodeUnauthorized, "Token has been revoked")
		}
	}

	return Principal{Subject: claims.Subject, Role: role, TokenID: claims.JTI}, nil
}

// Authorize checks p against the matrix.
func (g *Gate) Authorize(p Principal, res Resource, act Action) error {
	if !g.matrix.Permits(p.Role, res, act) {
		return dErrors.New(dErrors.CodeForbidden, "Forbidden: Insufficient permissions")
	}
	return nil
}
