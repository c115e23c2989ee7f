package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a user within the system
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Audit holds record-keeping metadata shared by persisted entities.
// Embedded by value rather than inherited from a base entity.
type Audit struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy string    `json:"updated_by,omitempty" db:"updated_by"`
}

// Touch updates the modification metadata
func (a *Audit) Touch(actor string) {
	a.UpdatedAt = time.Now().UTC()
	a.UpdatedBy = actor
}

// User represents a user reconciled from identity-provider token claims.
// Username is unique; NationalID, when present, is unique among non-empty
// values and is always held in digits-only form.
type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Email       string    `json:"email,omitempty" db:"email"`
	NationalID  string    `json:"national_id,omitempty" db:"national_id"`
	Role        Role      `json:"role" db:"role"`

	Audit
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "app_users"
}

// NewUser creates a new User instance with the default USER role
func NewUser(username, displayName, email, nationalID string) *User {
	now := time.Now().UTC()
	return &User{
		ID:          uuid.New(),
		Username:    username,
		DisplayName: displayName,
		Email:       email,
		NationalID:  nationalID,
		Role:        RoleUser,
		Audit: Audit{
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: username,
			UpdatedBy: username,
		},
	}
}
