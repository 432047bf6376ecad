package auth

import (
	"context"

	domain "identity/backend/internal/domain/auth"
)

// TokenManager abstracts token issuance and verification.
type TokenManager interface {
	Generate(user *domain.User) (string, error)
	Validate(token string) (*domain.Claims, error)
}

// PasswordHasher hashes and checks passwords. Verify reports false for any
// mismatch or malformed hash and never returns an error.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hashed string) bool
}
