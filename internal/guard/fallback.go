package guard

import (
	"fmt"
	"strings"

	"backend/internal/model"
	"backend/internal/permission"
)

// RedirectDelaySeconds is how long a denial view stays on screen
// before the automatic redirect fires.
const RedirectDelaySeconds = 5

// RecoveryAction is one way out of a denial screen.
type RecoveryAction struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Target  string `json:"target,omitempty"`
	Primary bool   `json:"primary"`
}

// FallbackView is the terminal rendering state for a denied
// navigation: what was denied, who was denied, why, and how to leave.
type FallbackView struct {
	Variant       string           `json:"variant"` // "permission_denied" or "unauthorized"
	Action        string           `json:"action"`
	Path          string           `json:"path"`
	Role          string           `json:"role,omitempty"`
	RoleName      string           `json:"role_name,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	Redirect      string           `json:"redirect"`
	RedirectAfter int              `json:"redirect_after_seconds"`
	Required      []string         `json:"required_permissions,omitempty"`
	Actions       []RecoveryAction `json:"actions"`
}

// RefreshHeader renders the auto-redirect contract as an HTTP Refresh
// header for shells that honor it.
func (v FallbackView) RefreshHeader() string {
	return fmt.Sprintf("%d; url=%s", v.RedirectAfter, v.Redirect)
}

// PermissionDeniedView builds the inline denial view shown in place of
// a protected page.
func PermissionDeniedView(sess *model.Session, path string, d permission.Decision) FallbackView {
	view := FallbackView{
		Variant:       "permission_denied",
		Action:        "access this page",
		Path:          path,
		Reason:        d.Reason,
		Redirect:      d.Redirect,
		RedirectAfter: RedirectDelaySeconds,
	}
	if view.Redirect == "" {
		view.Redirect = permission.LoginPath
	}
	if sess != nil {
		view.Role = string(sess.Role)
		view.RoleName = sess.Role.DisplayName()
	}
	view.Actions = recoveryActions(sess, view.Redirect)
	return view
}

// UnauthorizedParams carries the query parameters the unauthorized
// page accepts.
type UnauthorizedParams struct {
	Action              string
	Reason              string
	RequiredRole        string
	RequiredPermissions string
}

// UnauthorizedView builds the standalone unauthorized page from its
// query parameters.
func UnauthorizedView(sess *model.Session, home string, p UnauthorizedParams) FallbackView {
	action := p.Action
	if action == "" {
		action = "access this page"
	}
	view := FallbackView{
		Variant:       "unauthorized",
		Action:        action,
		Reason:        p.Reason,
		Redirect:      home,
		RedirectAfter: RedirectDelaySeconds,
	}
	if view.Redirect == "" {
		view.Redirect = permission.LoginPath
	}
	if sess != nil {
		view.Role = string(sess.Role)
		view.RoleName = sess.Role.DisplayName()
	}
	view.Actions = recoveryActions(sess, view.Redirect)
	if p.RequiredRole != "" && sess != nil && string(sess.Role) != p.RequiredRole {
		view.Actions = append(view.Actions, RecoveryAction{
			ID:    "switch-account",
			Label: "Switch Account",
		})
	}
	if perms := strings.TrimSpace(p.RequiredPermissions); perms != "" {
		view.Required = strings.Split(perms, ",")
	}
	return view
}

// recoveryActions always includes at least one action leading to a
// page the user can access.
func recoveryActions(sess *model.Session, home string) []RecoveryAction {
	if sess == nil {
		return []RecoveryAction{
			{ID: "sign-in", Label: "Sign In", Target: permission.LoginPath, Primary: true},
		}
	}
	return []RecoveryAction{
		{ID: "go-home", Label: "Go to Dashboard", Target: home, Primary: true},
		{ID: "go-back", Label: "Go Back"},
	}
}
