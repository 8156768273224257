package permission

import (
	"errors"
	"path"
	"strings"

	"backend/internal/model"
)

// Denial reason codes surfaced on fallback views.
const (
	ReasonRoleMismatch            = "role_mismatch"
	ReasonInsufficientPermissions = "insufficient_permissions"
	ReasonPageAccessDenied        = "page_access_denied"
)

// Decision is the ephemeral outcome of evaluating one navigation.
// It is computed fresh on every request and never persisted.
type Decision struct {
	Allowed  bool
	Redirect string // target path when a redirect must happen, "" otherwise
	Reason   string // reason code on denial, "" otherwise
	Err      error  // non-nil for configuration defects (UnknownRoleError)
}

// Evaluator answers "may this role access this path?" and "what should
// happen if not?". It is pure: all state lives in the immutable table.
type Evaluator struct {
	table *Table
}

func NewEvaluator(t *Table) *Evaluator {
	return &Evaluator{table: t}
}

// ResolvePath applies the central customer remap rule before any
// permission check. The evaluator only ever sees resolved paths.
func (e *Evaluator) ResolvePath(role model.Role, p string) string {
	clean, err := sanitizePath(p)
	if err != nil {
		return p
	}
	if role != model.RoleCustomer {
		return clean
	}
	for from, to := range customerRewrites {
		if clean == from {
			return to
		}
		if hasPathPrefix(clean, from) {
			return to + clean[len(from):]
		}
	}
	return clean
}

// CanAccess decides boolean access for a role and a path. An absent
// role only passes for public paths; an unmatched path is restricted
// to no one (fail-closed).
func (e *Evaluator) CanAccess(role model.Role, p string) bool {
	clean, err := sanitizePath(p)
	if err != nil {
		return false
	}
	if e.table.IsPublic(clean) {
		return true
	}
	if role == "" {
		return false
	}
	if role == model.RoleCustomer && !customerAllowed(clean) {
		return false
	}
	rules := e.table.RulesForPath(clean)
	_, ok := rules[role]
	return ok
}

// Decide runs the full per-navigation evaluation: resolve the path,
// check access and compute the redirect target on denial. An absent
// role always redirects to login; a denied role redirects to its
// default landing route; an unknown role is reported through
// Decision.Err and falls back to login.
func (e *Evaluator) Decide(role model.Role, p string) Decision {
	clean, err := sanitizePath(p)
	if err != nil {
		// Malformed paths are denied, never granted.
		if role == "" {
			return Decision{Redirect: LoginPath}
		}
		return e.denied(role, ReasonPageAccessDenied)
	}
	clean = e.ResolvePath(role, clean)

	if role == "" {
		if e.table.IsPublic(clean) {
			return Decision{Allowed: true}
		}
		return Decision{Redirect: LoginPath}
	}
	if !role.Valid() {
		return Decision{
			Redirect: LoginPath,
			Reason:   ReasonRoleMismatch,
			Err:      &UnknownRoleError{Role: role},
		}
	}
	if e.CanAccess(role, clean) {
		return Decision{Allowed: true}
	}

	reason := ReasonRoleMismatch
	if len(e.table.RulesForPath(clean)) == 0 {
		reason = ReasonPageAccessDenied
	}
	return e.denied(role, reason)
}

// DecideRedirect returns the redirect target for a role and path, or
// "" when the page may render in place.
func (e *Evaluator) DecideRedirect(role model.Role, p string) (string, error) {
	d := e.Decide(role, p)
	if d.Allowed {
		return "", nil
	}
	return d.Redirect, d.Err
}

// DefaultLandingRoute exposes the table lookup for callers outside the
// evaluation path (login redirects, fallback views).
func (e *Evaluator) DefaultLandingRoute(role model.Role) (string, error) {
	return e.table.DefaultLandingRoute(role)
}

// IsPublic exposes the public prefix check.
func (e *Evaluator) IsPublic(p string) bool {
	clean, err := sanitizePath(p)
	if err != nil {
		return false
	}
	return e.table.IsPublic(clean)
}

func (e *Evaluator) denied(role model.Role, reason string) Decision {
	target, err := e.table.DefaultLandingRoute(role)
	d := Decision{Redirect: target, Reason: reason}
	var unknown *UnknownRoleError
	if errors.As(err, &unknown) {
		d.Err = err
	}
	return d
}

func customerAllowed(p string) bool {
	for _, prefix := range customerAllowList {
		if hasPathPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// sanitizePath normalizes a request path and rejects anything that is
// not a clean absolute path.
func sanitizePath(p string) (string, error) {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || p[0] != '/' {
		return "", errors.New("permission: path must be absolute")
	}
	clean := path.Clean(p)
	if strings.Contains(clean, "..") {
		return "", errors.New("permission: path traversal rejected")
	}
	return clean, nil
}
