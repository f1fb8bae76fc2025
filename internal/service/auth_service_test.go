package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"userhub/internal/auth"
	apperrors "userhub/internal/errors"
	"userhub/internal/model"
	"userhub/internal/password"
	"userhub/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// countingHasher records how many comparisons ran.
type countingHasher struct {
	password.Hasher
	compares atomic.Int32
}

func (h *countingHasher) Compare(hash, plain string) bool {
	h.compares.Add(1)
	return h.Hasher.Compare(hash, plain)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHasher() password.Hasher {
	return password.NewBcrypt(bcrypt.MinCost)
}

func newTestAuthService(repo repository.UserRepository, hasher password.Hasher) (AuthService, *auth.JWTService) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	return NewAuthService(repo, hasher, jwtService, testLogger()), jwtService
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		password      string
		nameField     string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:      "successful registration",
			email:     "Test@Example.com ",
			password:  "password123",
			nameField: "Test User",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, repository.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name:      "user already exists",
			email:     "existing@example.com",
			password:  "password123",
			nameField: "Existing User",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "existing@example.com").Return(&model.User{Email: "existing@example.com"}, nil)
			},
			expectedError: apperrors.ErrConflict,
		},
		{
			name:      "lost registration race",
			email:     "race@example.com",
			password:  "password123",
			nameField: "Racer",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "race@example.com").Return(nil, repository.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(repository.ErrDuplicateKey)
			},
			expectedError: apperrors.ErrConflict,
		},
		{
			name:      "store failure",
			email:     "down@example.com",
			password:  "password123",
			nameField: "Down",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "down@example.com").Return(nil, errors.New("connection refused"))
			},
			expectedError: errors.New("check user existence: connection refused"),
		},
		{
			name:          "blank name",
			email:         "blank@example.com",
			password:      "password123",
			nameField:     "   ",
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.InvalidInput("name is required"),
		},
		{
			name:      "password longer than bcrypt accepts",
			email:     "long@example.com",
			password:  strings.Repeat("p", password.MaxBcryptBytes+1),
			nameField: "Long",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "long@example.com").Return(nil, repository.ErrRecordNotFound)
			},
			expectedError: apperrors.InvalidInput("password must be at most 72 bytes"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			service, _ := newTestAuthService(mockRepo, testHasher())
			user, err := service.Register(context.Background(), tt.nameField, tt.email, tt.password)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, user)
				assert.Equal(t, "test@example.com", user.Email)
				assert.Equal(t, tt.nameField, user.Name)
				assert.NotEqual(t, tt.password, user.PasswordHash)
				assert.True(t, password.Verify(user.PasswordHash, tt.password))
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hasher := testHasher()
	hashedPassword, err := hasher.Hash("password123")
	require.NoError(t, err)
	userID := uuid.New()

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "test@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           userID,
					Name:         "Test User",
					Email:        "test@example.com",
					PasswordHash: hashedPassword,
				}, nil)
			},
		},
		{
			name:     "invalid credentials - user not found",
			email:    "notfound@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, repository.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "invalid credentials - wrong password",
			email:    "test@example.com",
			password: "wrong",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           userID,
					Email:        "test@example.com",
					PasswordHash: hashedPassword,
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			service, jwtService := newTestAuthService(mockRepo, hasher)
			token, err := service.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, token)
			} else {
				require.NoError(t, err)
				require.NotNil(t, token)
				assert.True(t, token.ExpiresAt.After(time.Now()))

				claims, err := jwtService.ValidateToken(token.Value)
				require.NoError(t, err)
				assert.Equal(t, userID.String(), claims.UserID)
				assert.Equal(t, "Test User", claims.Name)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login_SameWorkForUnknownEmail(t *testing.T) {
	hasher := &countingHasher{Hasher: testHasher()}
	repo := repository.NewMemoryUserRepository()
	service, _ := newTestAuthService(repo, hasher)
	ctx := context.Background()

	_, err := service.Register(ctx, "Alice", "alice@example.com", "right")
	require.NoError(t, err)

	_, errUnknown := service.Login(ctx, "nobody@example.com", "right")
	unknownCompares := hasher.compares.Load()
	_, errWrong := service.Login(ctx, "alice@example.com", "wrong")

	assert.Equal(t, errUnknown, errWrong)
	assert.Equal(t, int32(1), unknownCompares)
	assert.Equal(t, int32(2), hasher.compares.Load())
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestAuthService(repository.NewMemoryUserRepository(), testHasher())

	_, err := service.Register(ctx, "Bob", "bob@example.com", "hunter22")
	require.NoError(t, err)

	token, err := service.Login(ctx, "bob@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Value)

	_, err = service.Register(ctx, "Other Bob", "BOB@example.com", "different")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAuthService_ConcurrentRegistration(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestAuthService(repository.NewMemoryUserRepository(), testHasher())

	const n = 8
	var wg sync.WaitGroup
	var ok, conflicts atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Register(ctx, "Same", "same@example.com", "pw")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, apperrors.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
}
