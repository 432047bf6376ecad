package token

import (
	"errors"
	"fmt"
	"time"

	domain "identity/backend/internal/domain/auth"
	usecase "identity/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultExpiry is the token lifetime used when none is configured.
const DefaultExpiry = 24 * time.Hour

// JWTManager issues and validates JWT tokens.
type JWTManager struct {
	secret     []byte
	expiration time.Duration
	issuer     string
	nowFunc    func() time.Time
}

// NewJWTManager constructs a manager with the provided secret and expiration.
// An empty secret is a configuration error the process cannot recover from.
func NewJWTManager(secret string, expiration time.Duration, issuer string) (*JWTManager, error) {
	if secret == "" {
		return nil, domain.ErrMissingSecret
	}
	if expiration <= 0 {
		expiration = DefaultExpiry
	}
	return &JWTManager{
		secret:     []byte(secret),
		expiration: expiration,
		issuer:     issuer,
		nowFunc:    time.Now,
	}, nil
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims represents token claims.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Generate creates a signed JWT whose subject is the user id.
func (m *JWTManager) Generate(user *domain.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("token subject is required")
	}

	now := m.nowFunc().UTC()
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses the token, checks signature and expiry, and returns its claims.
// Every failure wraps domain.ErrTokenInvalid; the reason is kept in the chain.
func (m *JWTManager) Validate(tokenString string) (*domain.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, domain.ErrTokenMalformed
	}

	out := &domain.Claims{
		Subject: claims.Subject,
		Email:   claims.Email,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
}
