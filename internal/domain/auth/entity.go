package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput indicates a required field was missing.
	ErrInvalidInput = errors.New("please send your email and password")
	// ErrInvalidCredentials indicates a login failure. Unknown accounts and wrong
	// passwords both map here.
	ErrInvalidCredentials = errors.New("the email or password is incorrect")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("user already exists")
	// ErrTokenInvalid means a supplied token cannot be validated.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrTokenMalformed is returned for strings that are not a decodable token.
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrTokenInvalid)
	// ErrTokenSignatureInvalid is returned when the signature does not verify.
	ErrTokenSignatureInvalid = fmt.Errorf("%w: bad signature", ErrTokenInvalid)
	// ErrTokenExpired is returned once the expiry instant has passed.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrTokenInvalid)
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrMissingSecret is fatal at startup: nothing can be signed or verified.
	ErrMissingSecret = errors.New("token signing secret is required")
)

// User models the authentication entity persisted in storage.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}

// Claims are the identity facts recovered from a verified token.
type Claims struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
