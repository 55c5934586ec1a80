package access

import (
	"strings"

	dErrors "pawnshop/pkg/domain-errors"
)

// Role is the closed set of staff roles carried by a token.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleEmployee Role = "Employee"
)

// ParseRole maps a raw role claim onto a Role. Anything other than the two
// known roles is an authentication failure.
func ParseRole(raw string) (Role, error) {
	switch {
	case strings.EqualFold(raw, string(RoleAdmin)):
		return RoleAdmin, nil
	case strings.EqualFold(raw, string(RoleEmployee)):
		return RoleEmployee, nil
	default:
		return "", dErrors.New(dErrors.CodeUnauthorized, "token carries no recognized role")
	}
}

func (r Role) String() string { return string(r) }

// Principal is the authenticated caller.
type Principal struct {
	Subject string
	Role    Role
	TokenID string
}
