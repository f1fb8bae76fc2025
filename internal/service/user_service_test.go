package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"userhub/internal/cache"
	apperrors "userhub/internal/errors"
	"userhub/internal/model"
	"userhub/internal/password"
	"userhub/internal/repository"
)

func strPtr(s string) *string { return &s }

func newTestCache(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestUserService_ListPagination(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryUserRepository(), testHasher(), nil, false, testLogger())

	for i := 1; i <= 25; i++ {
		_, err := svc.Create(ctx, fmt.Sprintf("user-%02d", i), fmt.Sprintf("user%02d@example.com", i), "pw")
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, int64(3), page.TotalPages)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PageSize)
	require.Len(t, page.Items, 10)
	assert.Equal(t, "user-11", page.Items[0].Name)
	assert.Equal(t, "user-20", page.Items[9].Name)
}

func TestUserService_ListDefaults(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("List", mock.Anything, 0, model.DefaultPageSize).Return([]model.User{}, int64(0), nil)

	svc := NewUserService(mockRepo, testHasher(), nil, false, testLogger())
	page, err := svc.List(context.Background(), 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, model.DefaultPageSize, page.PageSize)
	assert.Equal(t, int64(0), page.TotalPages)
	mockRepo.AssertExpectations(t)
}

func TestUserService_GetCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	svc := NewUserService(repository.NewMemoryUserRepository(), testHasher(), c, false, testLogger())

	created, err := svc.Create(ctx, "Alice", "alice@example.com", "pw")
	require.NoError(t, err)
	key := "user:" + created.ID.String()

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.True(t, mr.Exists(key))

	cached, err := mr.Get(key)
	require.NoError(t, err)
	assert.NotContains(t, cached, created.PasswordHash)

	_, err = svc.Update(ctx, created.ID, model.UserPatch{Name: strPtr("Alice B")})
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	got, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Name)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.False(t, mr.Exists(key))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserService_GetServedFromCache(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	id := uuid.New()

	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, Name: "Once"}, nil).Once()

	svc := NewUserService(mockRepo, testHasher(), c, false, testLogger())
	for i := 0; i < 3; i++ {
		got, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Once", got.Name)
	}
	mockRepo.AssertExpectations(t)
}

func TestUserService_GetRacingDeleteLeavesNoStaleEntry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	id := uuid.New()

	var svc UserService
	mockRepo := new(MockUserRepository)
	// the delete lands after Get read the record but before it fills the cache
	mockRepo.On("FindByID", mock.Anything, id).
		Run(func(mock.Arguments) { require.NoError(t, svc.Delete(ctx, id)) }).
		Return(&model.User{ID: id, Name: "Gone"}, nil).Once()
	mockRepo.On("Delete", mock.Anything, id).Return(nil).Once()
	mockRepo.On("FindByID", mock.Anything, id).Return(nil, repository.ErrRecordNotFound).Once()

	svc = NewUserService(mockRepo, testHasher(), c, false, testLogger())

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Gone", got.Name)
	assert.False(t, mr.Exists("user:"+id.String()))

	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestUserService_InputValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryUserRepository(), testHasher(), nil, false, testLogger())

	_, err := svc.Create(ctx, "  ", "blank@example.com", "pw")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Create(ctx, "Long", "long@example.com", strings.Repeat("x", password.MaxBcryptBytes+1))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	u, err := svc.Create(ctx, "  Trimmed  ", "trim@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Trimmed", u.Name)

	_, err = svc.Update(ctx, u.ID, model.UserPatch{Name: strPtr("\t ")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Update(ctx, u.ID, model.UserPatch{Password: strPtr(strings.Repeat("x", password.MaxBcryptBytes+1))})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trimmed", got.Name)
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryUserRepository(), testHasher(), nil, false, testLogger())

	alice, err := svc.Create(ctx, "Alice", "alice@example.com", "old-pass")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Bob", "bob@example.com", "pw")
	require.NoError(t, err)
	originalHash := alice.PasswordHash

	updated, err := svc.Update(ctx, alice.ID, model.UserPatch{Name: strPtr("Alice Liddell")})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.Name)
	assert.Equal(t, originalHash, updated.PasswordHash)

	updated, err = svc.Update(ctx, alice.ID, model.UserPatch{Password: strPtr("new-pass")})
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, updated.PasswordHash)
	assert.True(t, password.Verify(updated.PasswordHash, "new-pass"))

	_, err = svc.Update(ctx, alice.ID, model.UserPatch{Email: strPtr("BOB@example.com")})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.Update(ctx, uuid.New(), model.UserPatch{Name: strPtr("ghost")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserService_CreateConflict(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryUserRepository(), testHasher(), nil, false, testLogger())

	_, err := svc.Create(ctx, "A", "a@example.com", "pw")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "B", "a@example.com", "pw2")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUserService_DeletePolicy(t *testing.T) {
	tests := []struct {
		name       string
		softDelete bool
		setupMock  func(*MockUserRepository, uuid.UUID)
	}{
		{
			name: "hard",
			setupMock: func(m *MockUserRepository, id uuid.UUID) {
				m.On("Delete", mock.Anything, id).Return(nil)
			},
		},
		{
			name:       "soft",
			softDelete: true,
			setupMock: func(m *MockUserRepository, id uuid.UUID) {
				m.On("SoftDelete", mock.Anything, id).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo, id)

			svc := NewUserService(mockRepo, testHasher(), nil, tt.softDelete, testLogger())
			require.NoError(t, svc.Delete(context.Background(), id))
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_DeleteErrors(t *testing.T) {
	id := uuid.New()
	mockRepo := new(MockUserRepository)
	mockRepo.On("Delete", mock.Anything, id).Return(repository.ErrRecordNotFound).Once()
	mockRepo.On("Delete", mock.Anything, id).Return(errors.New("disk full")).Once()

	svc := NewUserService(mockRepo, testHasher(), nil, false, testLogger())
	assert.ErrorIs(t, svc.Delete(context.Background(), id), apperrors.ErrNotFound)

	err := svc.Delete(context.Background(), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "disk full")
}

func TestUserService_SoftDeletedIsInvisible(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(repository.NewMemoryUserRepository(), testHasher(), nil, true, testLogger())

	u, err := svc.Create(ctx, "A", "a@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, u.ID))

	_, err = svc.Get(ctx, u.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, u.ID), apperrors.ErrNotFound)

	page, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}
