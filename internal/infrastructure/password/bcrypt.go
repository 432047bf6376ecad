// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	domain "identity/backend/internal/domain/auth"
	usecase "identity/backend/internal/usecase/auth"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// BcryptHasher hashes passwords with bcrypt. Concurrent computations are
// bounded so a burst of logins cannot starve request dispatch.
type BcryptHasher struct {
	cost int
	gate *semaphore.Weighted
}

// Ensure BcryptHasher implements the PasswordHasher interface.
var _ usecase.PasswordHasher = (*BcryptHasher)(nil)

// NewBcryptHasher builds a hasher. maxConcurrent <= 0 means runtime.NumCPU().
func NewBcryptHasher(cost, maxConcurrent int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.NumCPU()
	}
	return &BcryptHasher{
		cost: cost,
		gate: semaphore.NewWeighted(int64(maxConcurrent)),
	}, nil
}

// Hash returns a salted bcrypt hash; every call draws a fresh salt.
func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", domain.ErrInvalidInput
	}
	if err := h.gate.Acquire(ctx, 1); err != nil {
		return "", oops.Code("PASSWORD_HASH_CANCELLED").Wrap(err)
	}
	defer h.gate.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password exceeds 72 bytes", domain.ErrInvalidInput)
	}
	if err != nil {
		return "", oops.Code("PASSWORD_HASH_FAILED").With("cost", h.cost).Wrap(err)
	}
	return string(hashed), nil
}

// Verify compares plaintext with a stored hash in constant time. Malformed
// hashes and a cancelled context both report false.
func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hashed string) bool {
	if hashed == "" {
		return false
	}
	if err := h.gate.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.gate.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
