package shared

// Role is the coarse grained role carried by a principal.
type Role string

// Known roles.
const (
	RoleAdmin      Role = "ADMIN"
	RoleAccountant Role = "ACCOUNTANT"
	RoleSeller     Role = "SELLER"
	RoleManager    Role = "MANAGER"
	RoleTechnician Role = "TECHNICIAN"
	RoleCustom     Role = "CUSTOM"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAccountant, RoleSeller, RoleManager, RoleTechnician, RoleCustom:
		return true
	}
	return false
}

// Principal identifies the caller of a ledger operation.
type Principal struct {
	UserID       int64
	Name         string
	Role         Role
	Capabilities map[string]bool
}

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return p.UserID == 0 && p.Role == ""
}

// Can reports whether a CUSTOM capability set grants action.
func (p Principal) Can(action string) bool {
	return p.Capabilities[action]
}
