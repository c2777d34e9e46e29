package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered account.
type User struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password string `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"` // bcrypt hash, never serialized

	// Reset fields are ephemeral: set when a password reset is requested,
	// cleared on redemption. A token is valid only while both are present
	// and ResetPasswordExpires is in the future.
	ResetPasswordToken   *string    `json:"-" gorm:"type:varchar(64);index"`
	ResetPasswordExpires *time.Time `json:"-"`

	gorm.Model `json:"-"`
}

// Heart marks a store as a favorite of a user. The composite primary key is
// what gives the favorites set its set semantics: a pair exists at most once.
type Heart struct {
	UserID  string `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	StoreID string `json:"store_id" gorm:"primaryKey;type:varchar(36)"`
}
