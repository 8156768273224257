package model

import (
	"time"

	"github.com/google/uuid"
)

// Session represents the currently authenticated principal for one
// browser tab. It is created on successful login, destroyed on logout
// or expiry, and owned exclusively by the session manager.
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DisplayName returns the principal's full name, falling back to email.
func (s *Session) DisplayName() string {
	if s.FirstName == "" && s.LastName == "" {
		return s.Email
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SessionToken is the durable record backing a persisted session token.
// The raw token handed to the client is "<id>.<secret>"; only a bcrypt
// hash of the secret half is ever stored.
type SessionToken struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Email      string    `gorm:"type:varchar(255);not null" json:"email"`
	FirstName  string    `gorm:"type:varchar(255)" json:"first_name"`
	LastName   string    `gorm:"type:varchar(255)" json:"last_name"`
	Role       string    `gorm:"type:varchar(50);not null" json:"role"`
	SecretHash string    `gorm:"type:varchar(255);not null" json:"-"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Session rebuilds the in-memory session carried by a token record.
func (t *SessionToken) Session() Session {
	role, _ := ParseRole(t.Role)
	return Session{
		UserID:    t.UserID,
		Email:     t.Email,
		FirstName: t.FirstName,
		LastName:  t.LastName,
		Role:      role,
		IssuedAt:  t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
	}
}
