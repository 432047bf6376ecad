package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	domain "identity/backend/internal/domain/auth"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

// timingPassword is hashed once and verified against whenever a login names
// an unknown account, so that path costs the same as a wrong password.
const timingPassword = "timing-equaliser"

// Service coordinates authentication workflows between domain and infrastructure.
type Service struct {
	users   domain.UserRepository
	hasher  PasswordHasher
	tokens  TokenManager
	logger  *slog.Logger
	nowFunc func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService constructs an auth service. A nil logger falls back to slog.Default.
func NewService(users domain.UserRepository, hasher PasswordHasher, tokens TokenManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Register creates a new user and returns the persisted entity without a password hash.
func (s *Service) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	creds := domain.Credentials{Email: domain.NormalizeEmail(email), Password: password}
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, creds.Email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.Hash(ctx, creds.Password)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        creds.Email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// A concurrent registration that won the race surfaces here as
	// ErrEmailExists from the store's uniqueness constraint.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return sanitizeUser(user), nil
}

// Authenticate checks credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	creds.Email = domain.NormalizeEmail(creds.Email)
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(ctx, creds.Password, s.timingHash(ctx))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(ctx, creds.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

// Login validates credentials and returns a token plus user.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (string, *domain.User, error) {
	user, err := s.Authenticate(ctx, creds)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return "", nil, err
	}

	s.logger.InfoContext(ctx, "user signed in", "user_id", user.ID)
	return token, user, nil
}

// ValidateToken verifies a token's signature and expiry and returns its claims.
func (s *Service) ValidateToken(token string) (*domain.Claims, error) {
	return s.tokens.Validate(token)
}

// VerifyToken validates a bearer token and returns the associated user. A
// valid token whose subject no longer exists resolves to ErrTokenInvalid.
func (s *Service) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *Service) timingHash(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		hashed, err := s.hasher.Hash(context.WithoutCancel(ctx), timingPassword)
		if err != nil {
			s.logger.WarnContext(ctx, "timing hash unavailable", "error", err)
			return
		}
		s.dummyHash = hashed
	})
	return s.dummyHash
}

func validateCredentials(creds domain.Credentials) error {
	err := validation.ValidateStruct(&creds,
		validation.Field(&creds.Email, validation.Required),
		validation.Field(&creds.Password, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func sanitizeUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	copy := *u
	copy.PasswordHash = ""
	return &copy
}
