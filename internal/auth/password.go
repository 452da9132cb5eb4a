package auth

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/evolution-fly/flight-service/pkg/util"
)

// MinPasswordLength matches the registration policy enforced at the edge.
const MinPasswordLength = 8

// ValidatePassword applies the local password policy before hashing.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.NewValidationError("password too short", map[string]any{
			"min_length": MinPasswordLength,
		})
	}
	return nil
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
