// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account. Password accounts carry a bcrypt hash;
// accounts created through Google sign-in carry a GoogleID instead.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	GoogleID     *string   `gorm:"column:google_id;uniqueIndex" json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
