package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"userhub/internal/auth"
	apperrors "userhub/internal/errors"
	"userhub/internal/model"
	"userhub/internal/password"
	"userhub/internal/repository"
)

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*auth.Token, error)
}

type authService struct {
	repo       repository.UserRepository
	hasher     password.Hasher
	jwtService *auth.JWTService
	logger     *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(repo repository.UserRepository, hasher password.Hasher, jwtService *auth.JWTService, logger *slog.Logger) AuthService {
	return &authService{
		repo:       repo,
		hasher:     hasher,
		jwtService: jwtService,
		logger:     logger,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeName trims a display name and rejects one that is blank.
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.InvalidInput("name is required")
	}
	return name, nil
}

// hashPassword hashes plain, reporting a password the hasher cannot take as
// invalid input.
func hashPassword(hasher password.Hasher, plain string) (string, error) {
	hash, err := hasher.Hash(plain)
	if errors.Is(err, password.ErrTooLong) {
		return "", apperrors.InvalidInput(fmt.Sprintf("password must be at most %d bytes", password.MaxBcryptBytes))
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Register creates a new user with a hashed password.
func (s *authService) Register(ctx context.Context, name, email, plain string) (*model.User, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)

	_, err = s.repo.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperrors.ErrConflict
	}
	if !errors.Is(err, repository.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hash, err := hashPassword(s.hasher, plain)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues an access token. Unknown email and
// wrong password fail the same way after the same amount of hashing work.
func (s *authService) Login(ctx context.Context, email, plain string) (*auth.Token, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrRecordNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		s.hasher.Compare(s.dummy(), plain)
		return nil, apperrors.ErrInvalidCredentials
	}

	if !s.hasher.Compare(user.PasswordHash, plain) {
		return nil, apperrors.ErrInvalidCredentials
	}

	value, expiresAt, err := s.jwtService.IssueToken(user.ID, user.Name)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &auth.Token{Value: value, ExpiresAt: expiresAt}, nil
}

func (s *authService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("timing-equalizer")
		if err != nil {
			s.logger.Error("prepare dummy hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
