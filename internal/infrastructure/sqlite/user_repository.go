package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "identity/backend/internal/domain/auth"

	"github.com/samber/oops"
	"github.com/uptrace/bun"
)

type userModel struct {
	bun.BaseModel `bun:"table:users"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email,notnull"`
	Name         string    `bun:"name,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// UserRepository persists users in SQLite.
type UserRepository struct {
	db bun.IDB
}

// Ensure UserRepository implements the domain interface.
var _ domain.UserRepository = (*UserRepository)(nil)

// NewUserRepository constructs a repository.
func NewUserRepository(db bun.IDB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	model := &userModel{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("user_id", user.ID).
			Wrap(err)
	}
	return nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	model := new(userModel)
	err := r.db.NewSelect().
		Model(model).
		Where("? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by "+column).
			Wrap(err)
	}
	return model.toDomain(), nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
