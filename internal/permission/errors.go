package permission

import "backend/internal/model"

// UnknownRoleError reports a session role that exists in a valid
// session but not in the permission table. This is a configuration
// defect, not a user-facing error: callers log it and treat the
// outcome as unauthenticated (redirect to login).
type UnknownRoleError struct {
	Role model.Role
}

func (e *UnknownRoleError) Error() string {
	return "permission: unknown role " + string(e.Role)
}
