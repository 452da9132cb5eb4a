package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/evolution-fly/flight-service/internal/api/dto"
	"github.com/evolution-fly/flight-service/internal/auth"
	"github.com/evolution-fly/flight-service/internal/domain"
	"github.com/evolution-fly/flight-service/internal/service"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

// AuthHandler exposes registration, login, logout and profile endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		return apperrors.NewValidationError("username, email, password required", nil)
	}

	// Public registration always yields a client account; elevated roles are
	// provisioned out of band.
	user, token, exp, err := h.auth.Register(c.Context(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Role:            domain.RoleClient,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.AuthResponse{
			Identity:  domain.IdentityOf(user),
			Token:     token,
			ExpiresAt: exp,
		},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, token, exp, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			Identity:  domain.IdentityOf(user),
			Token:     token,
			ExpiresAt: exp,
		},
	})
}

// Logout handles POST /auth/logout. It always acks so clients can clear
// local session state unconditionally.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	claims, err := h.auth.TokenManager().ParseToken(principal.Token)
	if err == nil {
		_ = h.auth.Logout(c.Context(), claims)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": domain.IdentityOf(principal.User)})
}

// UpdateProfile handles PUT /auth/profile.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.auth.UpdateProfile(c.Context(), principal.User, req.FirstName, req.LastName, req.Phone)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": domain.IdentityOf(user)})
}
