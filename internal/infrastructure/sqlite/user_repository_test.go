package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "identity/backend/internal/domain/auth"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	// Migrating twice is a no-op.
	require.NoError(t, db.Migrate(ctx))
	return db
}

func newUser(email string) *domain.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Alice",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDatabase(t).DB)

	user := newUser("alice@x.com")
	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, user.Name, byEmail.Name)
	assert.Equal(t, user.PasswordHash, byEmail.PasswordHash)
	assert.True(t, user.CreatedAt.Equal(byEmail.CreatedAt))

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", byID.Email)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDatabase(t).DB)

	_, err := repo.GetByEmail(ctx, "ghost@x.com")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDatabase(t).DB)

	require.NoError(t, repo.Create(ctx, newUser("alice@x.com")))
	err := repo.Create(ctx, newUser("alice@x.com"))
	require.ErrorIs(t, err, domain.ErrEmailExists)
}

func TestUserRepository_ConcurrentDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDatabase(t).DB)

	const workers = 6
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, newUser("race@x.com"))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		require.ErrorIs(t, err, domain.ErrEmailExists)
	}
	assert.Equal(t, 1, created)
}
