package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

// User is a registered shopper or admin. PasswordHash holds the encoded
// argon2id string produced by pkg/security.
type User struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;not null;default:'user'"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsAdmin reports whether the user may access the admin surface.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
