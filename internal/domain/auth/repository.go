package auth

import "context"

// UserRepository defines persistence operations for auth users.
//
// Lookups return ErrUserNotFound when nothing matches. Create returns
// ErrEmailExists when the store rejects the row on its email uniqueness
// constraint.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}
