package models

import (
	"time"

	"gorm.io/gorm"
)

// AccountRole distinguishes instructors from students
type AccountRole string

const (
	RoleInstructor AccountRole = "instructor"
	RoleStudent    AccountRole = "student"
)

// Account represents a user account in the system
type Account struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName   string         `gorm:"size:120;not null" json:"full_name"`
	Email      string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	HashedPass string         `gorm:"size:255;not null" json:"-"`
	Role       AccountRole    `gorm:"size:20;not null;default:student" json:"role"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "account"
}

// BeforeCreate hook is called before creating a new account
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	if a.Role == "" {
		a.Role = RoleStudent
	}
	return nil
}

// BeforeSave hook is called before saving the account
func (a *Account) BeforeSave(tx *gorm.DB) error {
	a.UpdatedAt = time.Now()
	return nil
}

// CreateAccountRequest represents the data needed to create a new account
type CreateAccountRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=instructor student"`
}

// LoginRequest represents the data needed for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
