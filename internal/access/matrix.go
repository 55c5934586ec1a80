package access

import "slices"

// Resource is a protected collection.
type Resource string

const (
	ResourceClient          Resource = "client"
	ResourceItemCategory    Resource = "itemCategory"
	ResourcePawnTransaction Resource = "pawnTransaction"
)

// Action is an operation on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Matrix lists the roles allowed per resource and action.
type Matrix map[Resource]map[Action][]Role

var (
	staff     = []Role{RoleAdmin, RoleEmployee}
	adminOnly = []Role{RoleAdmin}
)

// DefaultMatrix: categories are admin-only, deletes are admin-only, the rest
// is open to all staff.
var DefaultMatrix = Matrix{
	ResourceClient: {
		ActionRead:   staff,
		ActionCreate: staff,
		ActionUpdate: staff,
		ActionDelete: adminOnly,
	},
	ResourceItemCategory: {
		ActionRead:   adminOnly,
		ActionCreate: adminOnly,
		ActionUpdate: adminOnly,
		ActionDelete: adminOnly,
	},
	ResourcePawnTransaction: {
		ActionRead:   staff,
		ActionCreate: staff,
		ActionUpdate: staff,
		ActionDelete: adminOnly,
	},
}

// Allowed returns the roles permitted for the pair; unknown pairs allow nobody.
func (m Matrix) Allowed(res Resource, act Action) []Role {
	return m[res][act]
}

// Permits reports whether role may perform act on res.
func (m Matrix) Permits(role Role, res Resource, act Action) bool {
	return slices.Contains(m.Allowed(res, act), role)
}
