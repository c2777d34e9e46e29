package handlers

import (
	"errors"
	"log"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for registration, sessions, and the
// password-reset workflow.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
	router.Post("/logout", h.HandleLogout)
	router.Post("/account/forgot", h.HandleForgot)
	router.Get("/account/reset/:token", h.HandleResetPage)
	router.Post("/account/reset/:token", h.HandleResetUpdate)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var user models.User
	if err := c.BodyParser(&user); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(user); err != nil {
		return validationError(c, err)
	}

	if err := h.authService.RegisterUser(&user); err != nil {
		log.Printf("Error registering user: %v", err)
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Registration failed",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register user",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin authenticates the user and establishes a session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	token, _, err := h.authService.LoginUser(req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Failed login",
		})
	}

	h.setSessionCookie(c, token)
	return c.JSON(fiber.Map{
		"message": "You are now logged in",
		"token":   token,
	})
}

// HandleLogout clears the session cookie.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Path:     "/",
	})
	return c.JSON(fiber.Map{
		"message": "You are now logged out",
	})
}

// ForgotRequest represents the request body for forgot-password.
type ForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleForgot issues a password-reset token and queues the reset mail.
func (h *AuthHandler) HandleForgot(c *fiber.Ctx) error {
	var req ForgotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	if err := h.authService.ForgotPassword(req.Email, c.Hostname()); err != nil {
		if errors.Is(err, services.ErrNoAccount) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "No account with that email exists",
			})
		}
		log.Printf("Error issuing password reset for %s: %v", req.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not issue password reset",
		})
	}

	return c.JSON(fiber.Map{
		"message": "You have been emailed a password reset link",
	})
}

// HandleResetPage checks a reset token before the client shows the form.
// An invalid or expired token stops here.
func (h *AuthHandler) HandleResetPage(c *fiber.Ctx) error {
	user, err := h.authService.ValidateResetToken(c.Params("token"))
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidResetToken) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Password reset is invalid or has expired",
			})
		}
		log.Printf("Error validating reset token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not validate reset token",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Reset your password",
		"email":   user.Email,
	})
}

// ResetRequest represents the request body for the password update.
type ResetRequest struct {
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

// HandleResetUpdate redeems a reset token: the passwords must match, the
// token must still be valid, and on success the user gets a new session.
func (h *AuthHandler) HandleResetUpdate(c *fiber.Ctx) error {
	var req ResetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	if req.Password != req.PasswordConfirm {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Passwords do not match",
		})
	}

	token, _, err := h.authService.ResetPassword(c.Params("token"), req.Password)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidResetToken) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Password reset is invalid or has expired",
			})
		}
		log.Printf("Error resetting password: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not reset password",
		})
	}

	h.setSessionCookie(c, token)
	return c.JSON(fiber.Map{
		"message": "Great, your password has been reset",
		"token":   token,
	})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		HTTPOnly: true,
		Path:     "/",
	})
}
