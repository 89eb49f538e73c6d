package models

import (
	"time"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// RequiresApproval reports whether accounts with this role start unapproved.
func (r Role) RequiresApproval() bool {
	return r == RoleManager
}

type User struct {
	PK           uint64    `gorm:"column:pk;primaryKey;autoIncrement" json:"-"`
	ID           string    `gorm:"column:id;type:varchar(36);uniqueIndex;not null" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255)" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	IsApproved   bool      `gorm:"not null;default:false" json:"isApproved"`
	SSOLinked    bool      `gorm:"column:sso_linked;not null;default:false" json:"ssoLinked"`
	Provider     *string   `gorm:"type:varchar(50);uniqueIndex:idx_users_provider_identity" json:"provider,omitempty"`
	ProviderID   *string   `gorm:"type:varchar(255);uniqueIndex:idx_users_provider_identity" json:"providerId,omitempty"`
	Version      uint64    `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PendingApproval reports whether the account is blocked until an admin approves it.
func (u *User) PendingApproval() bool {
	return u.Role.RequiresApproval() && !u.IsApproved
}
