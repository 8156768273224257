package permission

import "backend/internal/model"

// Permission is a fine-grained capability shown on the roles admin
// screen and checked by the RequirePermission middleware.
type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Capability ids grouped by category.
const (
	PermUserManagementFull    = "user_management_full"
	PermUserManagementProfile = "user_management_profile"

	PermServiceManagementFull = "service_management_full"
	PermServiceManagementRead = "service_management_read"

	PermOrderManagementFull     = "order_management_full"
	PermOrderManagementBranch   = "order_management_branch"
	PermOrderManagementDelivery = "order_management_delivery"
	PermOrderManagementOwn      = "order_management_own"

	PermBranchManagementFull = "branch_management_full"
	PermBranchManagementOwn  = "branch_management_own"

	PermPaymentsFull = "payments_full"
	PermPaymentsOwn  = "payments_own"

	PermAccountingFull   = "accounting_full"
	PermAccountingBranch = "accounting_branch"
)

// Catalog lists every permission the dashboard knows about.
var Catalog = []Permission{
	{ID: PermUserManagementFull, Name: "Full User Management", Description: "Create, edit, delete all users", Category: "User Management"},
	{ID: PermUserManagementProfile, Name: "Profile Management", Description: "Edit own profile only", Category: "User Management"},

	{ID: PermServiceManagementFull, Name: "Full Service Management", Description: "Manage all services and pricing", Category: "Service Management"},
	{ID: PermServiceManagementRead, Name: "Read Service Information", Description: "View service details only", Category: "Service Management"},

	{ID: PermOrderManagementFull, Name: "Full Order Management", Description: "Manage all orders across branches", Category: "Order Management"},
	{ID: PermOrderManagementBranch, Name: "Branch Order Management", Description: "Manage orders for own branch", Category: "Order Management"},
	{ID: PermOrderManagementDelivery, Name: "Delivery Order Management", Description: "Manage delivery orders only", Category: "Order Management"},
	{ID: PermOrderManagementOwn, Name: "Own Orders", Description: "View and manage own orders only", Category: "Order Management"},

	{ID: PermBranchManagementFull, Name: "Full Branch Management", Description: "Manage all branches", Category: "Branch Management"},
	{ID: PermBranchManagementOwn, Name: "Own Branch Management", Description: "Manage own branch only", Category: "Branch Management"},

	{ID: PermPaymentsFull, Name: "Full Payment Management", Description: "Manage all payments and transactions", Category: "Payments"},
	{ID: PermPaymentsOwn, Name: "Own Payments", Description: "View own payment history only", Category: "Payments"},

	{ID: PermAccountingFull, Name: "Full Accounting Access", Description: "Access all financial data", Category: "Accounting"},
	{ID: PermAccountingBranch, Name: "Branch Accounting", Description: "Access financial data for own branch", Category: "Accounting"},
}

// rolePermissions is the role capability matrix.
var rolePermissions = map[model.Role][]string{
	model.RoleAdmin: {
		PermUserManagementFull,
		PermServiceManagementFull,
		PermOrderManagementFull,
		PermBranchManagementFull,
		PermPaymentsFull,
		PermAccountingFull,
	},
	model.RoleBranchManager: {
		PermServiceManagementFull,
		PermOrderManagementBranch,
		PermBranchManagementOwn,
		PermAccountingBranch,
	},
	model.RoleAccountant: {
		PermAccountingFull,
		PermPaymentsFull,
		PermServiceManagementRead,
		PermOrderManagementFull, // viewing orders for accounting purposes
	},
	model.RoleRider: {
		PermOrderManagementDelivery,
	},
	model.RoleCustomer: {
		PermUserManagementProfile,
		PermServiceManagementRead,
		PermOrderManagementOwn,
		PermPaymentsOwn,
	},
}

// pagePermissions maps a page prefix to the capabilities that unlock it.
var pagePermissions = map[string][]string{
	"/dashboard":     {PermOrderManagementFull, PermOrderManagementBranch, PermOrderManagementDelivery, PermOrderManagementOwn},
	"/branch":        {PermBranchManagementFull, PermBranchManagementOwn},
	"/clients":       {PermUserManagementFull, PermOrderManagementBranch},
	"/orders":        {PermOrderManagementFull, PermOrderManagementBranch},
	"/place-orders":  {PermOrderManagementFull, PermOrderManagementBranch},
	"/payments":      {PermPaymentsFull, PermPaymentsOwn},
	"/expenses":      {PermAccountingFull, PermAccountingBranch},
	"/income":        {PermAccountingFull, PermAccountingBranch},
	"/delivery":      {PermOrderManagementDelivery, PermOrderManagementFull},
	"/backup-export": {PermAccountingFull},
	"/roles":         {PermUserManagementFull},
}

// RolePermissions returns the capability ids granted to a role.
func RolePermissions(role model.Role) []string {
	perms, ok := rolePermissions[role]
	if !ok {
		return []string{}
	}
	return append([]string(nil), perms...)
}

// HasPermission reports whether the role holds the given capability.
func HasPermission(role model.Role, id string) bool {
	for _, p := range rolePermissions[role] {
		if p == id {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the role holds at least one of ids.
func HasAnyPermission(role model.Role, ids ...string) bool {
	for _, id := range ids {
		if HasPermission(role, id) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the role holds every id.
func HasAllPermissions(role model.Role, ids ...string) bool {
	for _, id := range ids {
		if !HasPermission(role, id) {
			return false
		}
	}
	return true
}

// PagePermissions returns the minimal capability list required by a
// page path: exact match first, then the longest registered prefix.
// Pages outside the map fall back to the profile capability every
// signed-in role holds at most implicitly.
func PagePermissions(p string) []string {
	clean, err := sanitizePath(p)
	if err != nil {
		return []string{}
	}
	if perms, ok := pagePermissions[clean]; ok {
		return append([]string(nil), perms...)
	}
	best := ""
	for prefix := range pagePermissions {
		if hasPathPrefix(clean, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return append([]string(nil), pagePermissions[best]...)
	}
	return []string{PermUserManagementProfile}
}
