package permission

import "backend/internal/model"

// Well-known paths used across the access layer.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// defaultRules mirrors the dashboard's page permission matrix.
var defaultRules = []RouteRule{
	{Prefix: "/dashboard", Roles: []model.Role{model.RoleAdmin, model.RoleBranchManager, model.RoleAccountant}},
	{Prefix: "/branch", Roles: []model.Role{model.RoleAdmin, model.RoleBranchManager}},
	{Prefix: "/branch-manager", Roles: []model.Role{model.RoleAdmin}},
	{Prefix: "/orders", Roles: []model.Role{model.RoleAdmin, model.RoleBranchManager, model.RoleRider}},
	{Prefix: "/place-orders", Roles: []model.Role{model.RoleAdmin, model.RoleBranchManager}},
	{Prefix: "/income", Roles: []model.Role{model.RoleAdmin, model.RoleAccountant}},
	{Prefix: "/expenses", Roles: []model.Role{model.RoleAdmin, model.RoleAccountant}},
	{Prefix: "/clients", Roles: []model.Role{model.RoleAdmin, model.RoleBranchManager}},
	{Prefix: "/payments", Roles: []model.Role{model.RoleAdmin, model.RoleBranchManager, model.RoleAccountant}},
	{Prefix: "/roles", Roles: []model.Role{model.RoleAdmin}},
	{Prefix: "/backup-export", Roles: []model.Role{model.RoleAdmin}},
	{Prefix: "/delivery", Roles: []model.Role{model.RoleAdmin, model.RoleBranchManager, model.RoleRider}},
	{Prefix: "/profile", Roles: []model.Role{model.RoleAdmin, model.RoleBranchManager, model.RoleAccountant, model.RoleRider}},

	{Prefix: "/customer/dashboard", Roles: []model.Role{model.RoleCustomer}},
	{Prefix: "/customer/orders", Roles: []model.Role{model.RoleCustomer}},
	{Prefix: "/customer/profile", Roles: []model.Role{model.RoleCustomer}},
	{Prefix: "/customer/place-order", Roles: []model.Role{model.RoleCustomer}},
	{Prefix: "/customer/payment", Roles: []model.Role{model.RoleCustomer}},
	{Prefix: "/customer/payment-history", Roles: []model.Role{model.RoleCustomer}},
}

// defaultLanding maps every role to its canonical home page, used both
// after login and as the safe redirect target on denial.
var defaultLanding = map[model.Role]string{
	model.RoleAdmin:         "/dashboard",
	model.RoleBranchManager: "/dashboard",
	model.RoleAccountant:    "/income",
	model.RoleRider:         "/delivery",
	model.RoleCustomer:      "/customer/dashboard",
}

// defaultPublic lists the path prefixes reachable without a session.
var defaultPublic = []string{
	"/login",
	"/signup",
	"/forgot-password",
	"/reset-password",
	"/verify-otp",
}

// customerAllowList is the explicit, exhaustive set of prefixes a
// customer session may reach. Everything else is denied for customers
// even if a shared-prefix rule would otherwise grant access.
var customerAllowList = []string{
	"/customer/dashboard",
	"/customer/orders",
	"/customer/profile",
	"/customer/place-order",
	"/customer/payment",
	"/customer/payment-history",
}

// customerRewrites is the central customer path remap rule: customers
// never see the staff profile page; the routing layer resolves it to
// the customer variant before any permission check runs.
var customerRewrites = map[string]string{
	"/profile": "/customer/profile",
}

// DefaultTable builds the production permission table.
func DefaultTable() *Table {
	return NewTable(defaultRules, defaultLanding, defaultPublic)
}
