package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	domain "identity/backend/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestManager(t *testing.T, ttl time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("test-secret", ttl, "")
	require.NoError(t, err)
	m.nowFunc = func() time.Time { return testNow }
	return m
}

func testUser() *domain.User {
	return &domain.User{ID: "2f0c4f0e-6a0b-4b8e-9d55-6f6d8f7f2a11", Email: "alice@x.com", Name: "Alice"}
}

func TestNewJWTManager(t *testing.T) {
	t.Run("missing secret is fatal", func(t *testing.T) {
		_, err := NewJWTManager("", time.Hour, "")
		require.ErrorIs(t, err, domain.ErrMissingSecret)
	})

	t.Run("non-positive ttl uses default", func(t *testing.T) {
		m, err := NewJWTManager("secret", 0, "")
		require.NoError(t, err)
		assert.Equal(t, DefaultExpiry, m.expiration)
	})
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m := newTestManager(t, time.Hour)
	user := testUser()

	signed, err := m.Generate(user)
	require.NoError(t, err)
	assert.Len(t, strings.Split(signed, "."), 3)

	claims, err := m.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, user.Email, claims.Email)
	assert.True(t, claims.IssuedAt.Equal(testNow))
	assert.True(t, claims.ExpiresAt.Equal(testNow.Add(time.Hour)))
}

func TestJWTManager_GenerateRequiresSubject(t *testing.T) {
	m := newTestManager(t, time.Hour)

	_, err := m.Generate(nil)
	require.Error(t, err)
	_, err = m.Generate(&domain.User{Email: "alice@x.com"})
	require.Error(t, err)
}

func TestJWTManager_Expiry(t *testing.T) {
	m := newTestManager(t, time.Hour)
	signed, err := m.Generate(testUser())
	require.NoError(t, err)

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{name: "just before expiry", at: testNow.Add(time.Hour - time.Second)},
		{name: "at expiry instant", at: testNow.Add(time.Hour), wantErr: domain.ErrTokenExpired},
		{name: "after expiry", at: testNow.Add(25 * time.Hour), wantErr: domain.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			m.nowFunc = func() time.Time { return at }

			_, err := m.Validate(signed)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, domain.ErrTokenInvalid)
		})
	}
}

func TestJWTManager_TamperedSignature(t *testing.T) {
	m := newTestManager(t, time.Hour)
	signed, err := m.Generate(testUser())
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	sig[0] ^= 0x01
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)

	_, err = m.Validate(strings.Join(parts, "."))
	require.ErrorIs(t, err, domain.ErrTokenSignatureInvalid)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	m := newTestManager(t, time.Hour)
	signed, err := m.Generate(testUser())
	require.NoError(t, err)

	other, err := NewJWTManager("rotated-secret", time.Hour, "")
	require.NoError(t, err)
	other.nowFunc = m.nowFunc

	_, err = other.Validate(signed)
	require.ErrorIs(t, err, domain.ErrTokenSignatureInvalid)
}

func TestJWTManager_Malformed(t *testing.T) {
	m := newTestManager(t, time.Hour)

	for _, input := range []string{"", "not-a-token", "a.b", "a.b.c", "Bearer abc.def.ghi"} {
		t.Run(input, func(t *testing.T) {
			_, err := m.Validate(input)
			require.ErrorIs(t, err, domain.ErrTokenInvalid)
		})
	}

	_, err := m.Validate("")
	require.ErrorIs(t, err, domain.ErrTokenMalformed)
}

func TestJWTManager_RejectsOtherAlgorithms(t *testing.T) {
	m := newTestManager(t, time.Hour)

	claims := Claims{
		Email: "alice@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone",
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	}

	t.Run("none", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Validate(signed)
		require.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("HS512 with same secret", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = m.Validate(signed)
		require.ErrorIs(t, err, domain.ErrTokenInvalid)
	})
}

func TestJWTManager_RequiresExpiry(t *testing.T) {
	m := newTestManager(t, time.Hour)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "someone"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.Validate(signed)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestJWTManager_Issuer(t *testing.T) {
	issuing, err := NewJWTManager("test-secret", time.Hour, "identity")
	require.NoError(t, err)
	issuing.nowFunc = func() time.Time { return testNow }

	signed, err := issuing.Generate(testUser())
	require.NoError(t, err)

	_, err = issuing.Validate(signed)
	require.NoError(t, err)

	foreign, err := NewJWTManager("test-secret", time.Hour, "someone-else")
	require.NoError(t, err)
	foreign.nowFunc = issuing.nowFunc

	_, err = foreign.Validate(signed)
	require.ErrorIs(t, err, domain.ErrTokenInvalid)
}
