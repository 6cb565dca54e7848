package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"gorm.io/gorm"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"type:text;not null;uniqueIndex:users_email_key"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;not null"`
	LastName     string     `gorm:"column:last_name;not null"`
	Phone        *string    `gorm:"column:phone"`
	Role         enums.Role `gorm:"column:role;type:text;not null;index"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	ImageKey     *string    `gorm:"column:image_key"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lower-cases and trims an email for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
