package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionLogin        = "LOGIN"
	ActionLoginFailed  = "LOGIN_FAILED"
	ActionLogout       = "LOGOUT"
	ActionAccessDenied = "ACCESS_DENIED"
	ActionUnknownRole  = "UNKNOWN_ROLE"
)

// AuditLog tracks Who, What, and When for access-control events: denied
// navigations, login/logout lifecycle and unknown-role configuration
// defects.
type AuditLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for anonymous requests
	Role      string     `gorm:"type:varchar(50);index" json:"role"`
	Action    string     `gorm:"type:varchar(50);not null;index" json:"action"`
	Path      string     `gorm:"type:varchar(255)" json:"path"`
	Reason    string     `gorm:"type:varchar(100)" json:"reason"`
	Details   string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the event
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
