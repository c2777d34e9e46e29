package repositories

import (
	"time"

	"storefront/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)

	// SetResetToken stores a password-reset token and its expiry on the user.
	SetResetToken(userID, token string, expires time.Time) error

	// FindByValidResetToken returns the user holding the given token whose
	// expiry is after now, or ErrInvalidResetToken.
	FindByValidResetToken(token string, now time.Time) (*models.User, error)

	// RedeemResetToken atomically sets the new password hash and clears both
	// reset fields, but only if the token still matches and is unexpired at
	// the time of the update. Returns ErrInvalidResetToken when no row
	// qualified, so a token can never be redeemed twice.
	RedeemResetToken(token, passwordHash string, now time.Time) error

	// ToggleHeart adds the store to the user's favorites if absent, removes
	// it if present, and returns the resulting set of store IDs.
	ToggleHeart(userID, storeID string) ([]string, error)

	// GetHearts returns the IDs of the user's favorited stores.
	GetHearts(userID string) ([]string, error)
}
