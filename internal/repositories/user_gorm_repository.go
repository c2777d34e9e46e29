package repositories

import (
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// SetResetToken stores the reset token and its expiry on the user.
func (r *GORMUserRepository) SetResetToken(userID, token string, expires time.Time) error {
	res := r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"reset_password_token":   token,
			"reset_password_expires": expires,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to set reset token for user %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByValidResetToken returns the user matching an unexpired token.
func (r *GORMUserRepository) FindByValidResetToken(token string, now time.Time) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "reset_password_token = ? AND reset_password_expires > ?", token, now).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, fmt.Errorf("failed to look up reset token: %w", err)
	}
	return &user, nil
}

// RedeemResetToken performs the password update and token clearing as a
// single conditional UPDATE. The WHERE clause is the gate: if the token was
// already redeemed or has expired, zero rows match and nothing changes.
func (r *GORMUserRepository) RedeemResetToken(token, passwordHash string, now time.Time) error {
	res := r.db.Model(&models.User{}).
		Where("reset_password_token = ? AND reset_password_expires > ?", token, now).
		Updates(map[string]interface{}{
			"password":               passwordHash,
			"reset_password_token":   nil,
			"reset_password_expires": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to redeem reset token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidResetToken
	}
	return nil
}

// ToggleHeart removes the favorite if it exists, adds it otherwise.
func (r *GORMUserRepository) ToggleHeart(userID, storeID string) ([]string, error) {
	res := r.db.Where("user_id = ? AND store_id = ?", userID, storeID).Delete(&models.Heart{})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to toggle heart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		heart := models.Heart{UserID: userID, StoreID: storeID}
		if err := r.db.Create(&heart).Error; err != nil {
			// A concurrent toggle may have inserted the pair first; the
			// composite key keeps the set free of duplicates either way.
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("failed to add heart: %w", err)
			}
		}
	}
	return r.GetHearts(userID)
}

// GetHearts returns the store IDs the user has favorited.
func (r *GORMUserRepository) GetHearts(userID string) ([]string, error) {
	ids := []string{}
	err := r.db.Model(&models.Heart{}).
		Where("user_id = ?", userID).
		Order("store_id").
		Pluck("store_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get hearts for user %s: %w", userID, err)
	}
	return ids, nil
}
