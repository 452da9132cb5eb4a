package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/evolution-fly/flight-service/internal/auth"
	"github.com/evolution-fly/flight-service/internal/config"
	"github.com/evolution-fly/flight-service/internal/domain"
	"github.com/evolution-fly/flight-service/internal/repository"
	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	denylist   *TokenDenylist
	bcryptCost int
}

// RegisterInput describes a new account request.
type RegisterInput struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Phone           *string
	Role            domain.Role
	Password        string
	PasswordConfirm string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, denylist *TokenDenylist) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		denylist:   denylist,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a new account and issues a session token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, time.Time, error) {
	if input.Password != input.PasswordConfirm {
		return nil, "", time.Time{}, apperrors.NewValidationError("passwords do not match", nil)
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, "", time.Time{}, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Username == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("username and email required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewValidationError("email already registered", map[string]any{"email": email})
	} else if err != pgx.ErrNoRows {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleClient
	}
	if !role.Valid() {
		return nil, "", time.Time{}, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	user := &domain.User{
		Username:     input.Username,
		Email:        email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Login authenticates an account by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if !user.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Logout revokes the presented token until its natural expiry. Logout always
// acks; a missing denylist just makes revocation a no-op.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.denylist == nil || claims == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.denylist.Revoke(ctx, claims.ID, ttl)
}

// UpdateProfile applies profile changes for the authenticated account. Role
// and credentials are not touched here.
func (s *AuthService) UpdateProfile(ctx context.Context, user *domain.User, firstName, lastName string, phone *string) (*domain.User, error) {
	user.FirstName = firstName
	user.LastName = lastName
	user.Phone = phone
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
