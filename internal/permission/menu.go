package permission

import "backend/internal/model"

// MenuEntry is one navigation-shell sidebar item.
type MenuEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

// menuEntries lists every sidebar item in display order. Filtering is
// not encoded here: MenuForRole reuses CanAccess so the menu can never
// disagree with the route guard.
var menuEntries = []MenuEntry{
	{ID: "dashboard", Label: "Dashboard", Path: "/dashboard"},
	{ID: "branches", Label: "Branch Management", Path: "/branch"},
	{ID: "branch-managers", Label: "Branch Managers", Path: "/branch-manager"},
	{ID: "orders", Label: "Order Management", Path: "/orders"},
	{ID: "place-orders", Label: "Place Orders", Path: "/place-orders"},
	{ID: "income", Label: "Income Tracking", Path: "/income"},
	{ID: "expenses", Label: "Expense Tracking", Path: "/expenses"},
	{ID: "clients", Label: "Client Management", Path: "/clients"},
	{ID: "payments", Label: "Payment Management", Path: "/payments"},
	{ID: "roles", Label: "Role Management", Path: "/roles"},
	{ID: "backup-export", Label: "Backup & Export", Path: "/backup-export"},
	{ID: "delivery", Label: "Delivery Dashboard", Path: "/delivery"},
	{ID: "customer-dashboard", Label: "My Dashboard", Path: "/customer/dashboard"},
	{ID: "customer-orders", Label: "My Orders", Path: "/customer/orders"},
	{ID: "customer-place-order", Label: "Place Order", Path: "/customer/place-order"},
	{ID: "customer-payment", Label: "Payment", Path: "/customer/payment"},
	{ID: "profile", Label: "Profile", Path: "/profile"},
}

// MenuForRole returns the sidebar entries whose routes the role can
// access, with customer path remapping already applied.
func MenuForRole(e *Evaluator, role model.Role) []MenuEntry {
	out := make([]MenuEntry, 0, len(menuEntries))
	for _, entry := range menuEntries {
		resolved := e.ResolvePath(role, entry.Path)
		if !e.CanAccess(role, resolved) {
			continue
		}
		item := entry
		item.Path = resolved
		if role == model.RoleCustomer && entry.ID == "profile" {
			item.ID = "customer-profile"
		}
		out = append(out, item)
	}
	return out
}

// PageForPath maps a path onto its page id for the navigation shell.
func PageForPath(p string) string {
	clean, err := sanitizePath(p)
	if err != nil {
		return "dashboard"
	}
	best := MenuEntry{}
	for _, entry := range menuEntries {
		if hasPathPrefix(clean, entry.Path) && len(entry.Path) > len(best.Path) {
			best = entry
		}
	}
	if best.ID == "" {
		return "dashboard"
	}
	return best.ID
}
