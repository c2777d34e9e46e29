package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/rabbitmq"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	// resetTokenBytes is the size of the random reset token; hex-encoded it
	// becomes a 40-character string.
	resetTokenBytes = 20

	// ResetTokenTTL is how long an issued reset token stays valid.
	ResetTokenTTL = time.Hour
)

// ErrNoAccount is returned by ForgotPassword when the email is unknown.
var ErrNoAccount = errors.New("no account with that email exists")

// AuthService handles business logic for authentication, sessions, and the
// password-reset lifecycle.
type AuthService struct {
	userRepo   repositories.UserRepository
	mqClient   *rabbitmq.Client
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which a session JWT is valid
}

// NewAuthService creates a new AuthService. mqClient may be nil, in which
// case reset mails are skipped (useful in tests).
func NewAuthService(userRepo repositories.UserRepository, mqClient *rabbitmq.Client, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		mqClient:   mqClient,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// RegisterUser registers a new user, hashes their password, and saves them.
func (s *AuthService) RegisterUser(user *models.User) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return repositories.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// LoginUser authenticates a user by email and returns a session JWT.
func (s *AuthService) LoginUser(email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		// Do not reveal whether the email exists
		return "", nil, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials")
	}

	token, err := s.SessionToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// SessionToken issues a signed session JWT for the user.
func (s *AuthService) SessionToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.tokenDurat).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a session JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// ForgotPassword issues a reset token for the account with the given email
// and publishes a mail event carrying the reset link. host is the HTTP host
// the link should point back to.
func (s *AuthService) ForgotPassword(email, host string) error {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNoAccount
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)
	expires := time.Now().Add(ResetTokenTTL)

	if err := s.userRepo.SetResetToken(user.ID, token, expires); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("http://%s/account/reset/%s", host, token)
	if s.mqClient != nil {
		mail := rabbitmq.PasswordResetMail{To: user.Email, Name: user.Name, ResetURL: resetURL}
		if err := s.mqClient.PublishPasswordReset(mail); err != nil {
			log.Printf("Warning: Failed to publish reset mail event for %s: %v", user.Email, err)
		}
	} else {
		log.Println("RabbitMQ client is not initialized. Skipping reset mail.")
	}
	return nil
}

// ValidateResetToken returns the user holding an unexpired reset token, or
// repositories.ErrInvalidResetToken.
func (s *AuthService) ValidateResetToken(token string) (*models.User, error) {
	return s.userRepo.FindByValidResetToken(token, time.Now())
}

// ResetPassword redeems a reset token: it sets the new password and clears
// the token fields in one conditional update, then issues a fresh session
// for the user. An invalid or expired token changes nothing and establishes
// no session.
func (s *AuthService) ResetPassword(token, password string) (string, *models.User, error) {
	user, err := s.userRepo.FindByValidResetToken(token, time.Now())
	if err != nil {
		return "", nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// The conditional update is the gate: if another request redeemed the
	// token between the lookup above and now, zero rows match and we fail.
	if err := s.userRepo.RedeemResetToken(token, string(hashedPassword), time.Now()); err != nil {
		return "", nil, err
	}

	sessionToken, err := s.SessionToken(user)
	if err != nil {
		return "", nil, err
	}
	return sessionToken, user, nil
}
