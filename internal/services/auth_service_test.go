package services_test

import (
	"encoding/hex"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetResetToken(userID, token string, expires time.Time) error {
	args := m.Called(userID, token, expires)
	return args.Error(0)
}

func (m *MockUserRepository) FindByValidResetToken(token string, now time.Time) (*models.User, error) {
	args := m.Called(token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) RedeemResetToken(token, passwordHash string, now time.Time) error {
	args := m.Called(token, passwordHash, now)
	return args.Error(0)
}

func (m *MockUserRepository) ToggleHeart(userID, storeID string) ([]string, error) {
	args := m.Called(userID, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUserRepository) GetHearts(userID string) ([]string, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

const testJWTSecret = "test_jwt_secret"

func TestAuthService_RegisterUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, testJWTSecret)

	user := &models.User{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "password123",
	}

	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()
	err := authService.RegisterUser(user)
	assert.NoError(t, err)
	// The stored password must be a hash of the submitted one
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Duplicate email surfaces as the domain error
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicateEmail).Once()
	err = authService.RegisterUser(&models.User{Name: "Other", Email: "test@example.com", Password: "password123"})
	assert.ErrorIs(t, err, repositories.ErrDuplicateEmail)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, testJWTSecret)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Name:     "Test User",
		Email:    "test@example.com",
		Password: string(hashedPassword),
	}

	// Successful login returns a JWT carrying the user ID
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	token, loggedIn, err := authService.LoginUser(user.Email, "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims["user_id"])

	// Wrong password
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	_, _, err = authService.LoginUser(user.Email, "wrong")
	assert.Error(t, err)

	// Unknown email must not be distinguishable from a wrong password
	mockRepo.On("GetByEmail", "nobody@example.com").Return(nil, repositories.ErrNotFound).Once()
	_, _, err = authService.LoginUser("nobody@example.com", "password123")
	assert.EqualError(t, err, "invalid credentials")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken_RejectsWrongSecret(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, testJWTSecret)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	forgedString, err := forged.SignedString([]byte("other-secret"))
	assert.NoError(t, err)

	_, err = authService.ValidateToken(forgedString)
	assert.Error(t, err)
}

func TestAuthService_ForgotPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, testJWTSecret)

	user := &models.User{ID: "user-123", Name: "Test User", Email: "test@example.com"}

	var issuedToken string
	var issuedExpiry time.Time
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	mockRepo.On("SetResetToken", user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			issuedToken = args.String(1)
			issuedExpiry = args.Get(2).(time.Time)
		}).Return(nil).Once()

	before := time.Now()
	err := authService.ForgotPassword(user.Email, "example.com")
	assert.NoError(t, err)

	// 20 random bytes, hex-encoded: 40 characters
	assert.Len(t, issuedToken, 40)
	_, err = hex.DecodeString(issuedToken)
	assert.NoError(t, err)

	// Expiry is exactly one hour out (within scheduling slack)
	assert.WithinDuration(t, before.Add(services.ResetTokenTTL), issuedExpiry, 2*time.Second)
	mockRepo.AssertExpectations(t)

	// Unknown email
	mockRepo.On("GetByEmail", "nobody@example.com").Return(nil, repositories.ErrNotFound).Once()
	err = authService.ForgotPassword("nobody@example.com", "example.com")
	assert.ErrorIs(t, err, services.ErrNoAccount)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ResetPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, testJWTSecret)

	user := &models.User{ID: "user-123", Name: "Test User", Email: "test@example.com"}
	token := "aaaabbbbccccddddeeeeffff0000111122223333"

	// Success: the new hash is persisted through the conditional update and
	// a session token for the user comes back.
	var storedHash string
	mockRepo.On("FindByValidResetToken", token, mock.AnythingOfType("time.Time")).Return(user, nil).Once()
	mockRepo.On("RedeemResetToken", token, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			storedHash = args.String(1)
		}).Return(nil).Once()

	sessionToken, resetUser, err := authService.ResetPassword(token, "newpassword")
	assert.NoError(t, err)
	assert.NotEmpty(t, sessionToken)
	assert.Equal(t, user.ID, resetUser.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("newpassword")))

	claims, err := authService.ValidateToken(sessionToken)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, claims["user_id"])
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ResetPassword_InvalidOrExpired(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, testJWTSecret)

	// Expired token fails the lookup and nothing else happens: no password
	// change, no session.
	mockRepo.On("FindByValidResetToken", "stale", mock.AnythingOfType("time.Time")).
		Return(nil, repositories.ErrInvalidResetToken).Once()

	sessionToken, user, err := authService.ResetPassword("stale", "newpassword")
	assert.ErrorIs(t, err, repositories.ErrInvalidResetToken)
	assert.Empty(t, sessionToken)
	assert.Nil(t, user)
	mockRepo.AssertNotCalled(t, "RedeemResetToken", mock.Anything, mock.Anything, mock.Anything)

	// Token raced away between lookup and redemption: the conditional
	// update matches nothing and no session is established.
	userRec := &models.User{ID: "user-123", Email: "test@example.com"}
	mockRepo.On("FindByValidResetToken", "raced", mock.AnythingOfType("time.Time")).Return(userRec, nil).Once()
	mockRepo.On("RedeemResetToken", "raced", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(repositories.ErrInvalidResetToken).Once()

	sessionToken, user, err = authService.ResetPassword("raced", "newpassword")
	assert.ErrorIs(t, err, repositories.ErrInvalidResetToken)
	assert.Empty(t, sessionToken)
	assert.Nil(t, user)
	mockRepo.AssertExpectations(t)
}
