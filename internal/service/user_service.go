package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"userhub/internal/cache"
	apperrors "userhub/internal/errors"
	"userhub/internal/model"
	"userhub/internal/password"
	"userhub/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UserService exposes domain operations.
type UserService interface {
	List(ctx context.Context, page, pageSize int) (*model.Page, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, name, email, password string) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) (*model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// cachedUser is the cache representation; the password hash never leaves the store.
type cachedUser struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type userService struct {
	repo       repository.UserRepository
	hasher     password.Hasher
	cache      *cache.Client
	softDelete bool
	logger     *slog.Logger
}

// NewUserService builds a UserService with repository and cache. softDelete
// selects flag-based deletion instead of removal.
func NewUserService(repo repository.UserRepository, hasher password.Hasher, cache *cache.Client, softDelete bool, logger *slog.Logger) UserService {
	return &userService{
		repo:       repo,
		hasher:     hasher,
		cache:      cache,
		softDelete: softDelete,
		logger:     logger,
	}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return "user:" + id.String()
}

func (s *userService) List(ctx context.Context, page, pageSize int) (*model.Page, error) {
	page, pageSize = model.NormalizePaging(page, pageSize)

	users, total, err := s.repo.List(ctx, model.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &model.Page{
		Items:      users,
		Total:      total,
		TotalPages: model.TotalPages(total, pageSize),
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	key := s.cacheKey(id)
	var cached cachedUser
	if s.cache.GetJSON(ctx, key, &cached) {
		return &model.User{
			ID:        cached.ID,
			Name:      cached.Name,
			Email:     cached.Email,
			CreatedAt: cached.CreatedAt,
			UpdatedAt: cached.UpdatedAt,
		}, nil
	}

	// read the generation before the store so a concurrent write voids the fill
	gen, cacheable := s.cache.Generation(ctx, key)

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.cache.FillJSON(ctx, key, gen, cachedUser{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
			UpdatedAt: user.UpdatedAt,
		}, userCacheTTL)
	}
	return user, nil
}

func (s *userService) Create(ctx context.Context, name, email, plain string) (*model.User, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(s.hasher, plain)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user created", "user_id", user.ID)
	return user, nil
}

func (s *userService) Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) (*model.User, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name, err := normalizeName(*patch.Name)
		if err != nil {
			return nil, err
		}
		user.Name = name
	}
	if patch.Email != nil {
		user.Email = NormalizeEmail(*patch.Email)
	}
	if patch.Password != nil {
		hash, err := hashPassword(s.hasher, *patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, apperrors.ErrConflict
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, apperrors.ErrNotFound
		default:
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	s.cache.Invalidate(ctx, s.cacheKey(id))

	s.logger.InfoContext(ctx, "user updated", "user_id", id)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	var err error
	if s.softDelete {
		err = s.repo.SoftDelete(ctx, id)
	} else {
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.cache.Invalidate(ctx, s.cacheKey(id))

	s.logger.InfoContext(ctx, "user deleted", "user_id", id, "soft", s.softDelete)
	return nil
}

func (s *userService) find(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
