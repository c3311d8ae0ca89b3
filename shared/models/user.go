package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated principal of the dashboard
type User struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string     `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Login        *string    `json:"login,omitempty" gorm:"type:varchar(100);uniqueIndex"`
	Name         string     `json:"name" gorm:"type:varchar(255)"`
	Role         UserRole   `json:"role" gorm:"type:varchar(20);not null;default:user"`
	ClientID     *uuid.UUID `json:"clientId,omitempty" gorm:"type:uuid;index"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	Client *Client `json:"client,omitempty" gorm:"foreignKey:ClientID"`
}

type UserRole string

const (
	RoleSuperAdmin  UserRole = "super_admin"
	RoleClientAdmin UserRole = "client_admin"
	RoleEditor      UserRole = "editor"
	RoleUser        UserRole = "user"
)

func (User) TableName() string {
	return "users"
}

// Valid reports whether r is one of the closed set of roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleClientAdmin, RoleEditor, RoleUser:
		return true
	}
	return false
}

// IsClientScoped reports whether the role must carry a client binding
func (r UserRole) IsClientScoped() bool {
	return r == RoleClientAdmin || r == RoleEditor
}

// ValidateBinding checks the role/client invariant
func (u *User) ValidateBinding() bool {
	if !u.Role.Valid() {
		return false
	}
	if u.Role.IsClientScoped() {
		return u.ClientID != nil && *u.ClientID != uuid.Nil
	}
	return true
}

// Info projects the minimal identity placed on a request
func (u *User) Info() *UserInfo {
	return &UserInfo{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		ClientID: u.ClientID,
	}
}

// UserInfo is the caller identity resolved from a session token
type UserInfo struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Role     UserRole   `json:"role"`
	ClientID *uuid.UUID `json:"clientId,omitempty"`
	// TokenID is the session token id, used for revocation on logout
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

func (ui *UserInfo) IsSuperAdmin() bool {
	return ui != nil && ui.Role == RoleSuperAdmin
}

func (ui *UserInfo) IsClientAdmin() bool {
	return ui != nil && ui.Role == RoleClientAdmin
}

// MayActOn reports whether the caller may read drafts of, or write to, the
// given client. Super admins act on every client; client admins and editors
// only on the client they are bound to; plain users on none.
func (ui *UserInfo) MayActOn(clientID uuid.UUID) bool {
	if ui == nil {
		return false
	}
	switch ui.Role {
	case RoleSuperAdmin:
		return true
	case RoleClientAdmin, RoleEditor:
		return ui.ClientID != nil && *ui.ClientID == clientID
	}
	return false
}

// CanManageClient reports whether the caller may change the client record itself
func (ui *UserInfo) CanManageClient(clientID uuid.UUID) bool {
	if ui.IsSuperAdmin() {
		return true
	}
	return ui.IsClientAdmin() && ui.ClientID != nil && *ui.ClientID == clientID
}
