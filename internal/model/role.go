package model

// Role is the closed set of principal categories the system recognizes.
// A session carries exactly one Role, assigned by the authentication
// backend at login and immutable afterwards.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleBranchManager Role = "branch_manager"
	RoleAccountant    Role = "accountant"
	RoleRider         Role = "rider"
	RoleCustomer      Role = "customer"
)

// AllRoles returns every defined role in a stable order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleBranchManager, RoleAccountant, RoleRider, RoleCustomer}
}

// ParseRole maps a raw role string onto the closed enumeration.
// The boolean is false for anything outside the known set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleBranchManager, RoleAccountant, RoleRider, RoleCustomer:
		return Role(s), true
	default:
		return Role(s), false
	}
}

// Valid reports whether the role belongs to the known set.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string {
	return string(r)
}

// DisplayName returns the human-readable role name shown on denial screens.
func (r Role) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleBranchManager:
		return "Branch Manager"
	case RoleAccountant:
		return "Accountant"
	case RoleRider:
		return "Delivery Rider"
	case RoleCustomer:
		return "Customer"
	default:
		return string(r)
	}
}
