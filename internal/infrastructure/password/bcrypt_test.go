package password

import (
	"context"
	"strings"
	"sync"
	"testing"

	domain "identity/backend/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestHasher(t *testing.T, maxConcurrent int) *BcryptHasher {
	t.Helper()
	h, err := NewBcryptHasher(bcrypt.MinCost, maxConcurrent)
	require.NoError(t, err)
	return h
}

func TestNewBcryptHasher(t *testing.T) {
	t.Run("zero cost uses default", func(t *testing.T) {
		h, err := NewBcryptHasher(0, 1)
		require.NoError(t, err)
		assert.Equal(t, DefaultCost, h.cost)
	})

	t.Run("rejects out of range cost", func(t *testing.T) {
		_, err := NewBcryptHasher(bcrypt.MaxCost+1, 1)
		require.Error(t, err)
		_, err = NewBcryptHasher(bcrypt.MinCost-1, 1)
		require.Error(t, err)
	})
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	ctx := context.Background()
	h := newTestHasher(t, 2)

	hashed, err := h.Hash(ctx, "pw123")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", hashed)
	assert.True(t, strings.HasPrefix(hashed, "$2a$"))

	assert.True(t, h.Verify(ctx, "pw123", hashed))
	assert.False(t, h.Verify(ctx, "pw124", hashed))
	assert.False(t, h.Verify(ctx, "", hashed))
}

func TestBcryptHasher_SaltsDiffer(t *testing.T) {
	ctx := context.Background()
	h := newTestHasher(t, 2)

	first, err := h.Hash(ctx, "same-password")
	require.NoError(t, err)
	second, err := h.Hash(ctx, "same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify(ctx, "same-password", first))
	assert.True(t, h.Verify(ctx, "same-password", second))
}

func TestBcryptHasher_Errors(t *testing.T) {
	ctx := context.Background()
	h := newTestHasher(t, 1)

	t.Run("empty password", func(t *testing.T) {
		_, err := h.Hash(ctx, "")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("password too long", func(t *testing.T) {
		_, err := h.Hash(ctx, strings.Repeat("x", 73))
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("malformed hashes fail closed", func(t *testing.T) {
		for _, hashed := range []string{"", "not-a-hash", "$2a$10$short", "$argon2id$v=19$m=65536,t=1,p=4$AAAA$AAAA"} {
			assert.False(t, h.Verify(ctx, "pw123", hashed), hashed)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		hashed, err := h.Hash(ctx, "pw123")
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		// Hold the only slot so Acquire has to observe the cancellation.
		require.NoError(t, h.gate.Acquire(ctx, 1))
		defer h.gate.Release(1)

		assert.False(t, h.Verify(cancelled, "pw123", hashed))
		_, err = h.Hash(cancelled, "pw123")
		require.Error(t, err)
	})
}

func TestBcryptHasher_Concurrent(t *testing.T) {
	ctx := context.Background()
	h := newTestHasher(t, 2)

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hashed, err := h.Hash(ctx, "pw123")
			if err != nil {
				return
			}
			results[i] = h.Verify(ctx, "pw123", hashed)
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "worker %d", i)
	}
}
