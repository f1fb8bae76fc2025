package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"userhub/internal/model"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users []model.User
	now   func() time.Time
}

// NewMemoryUserRepository returns an in-process repository. Records live only
// as long as the process.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{now: time.Now}
}

func (r *memoryUserRepository) indexByID(id uuid.UUID) int {
	for i := range r.users {
		if r.users[i].ID == id && !r.users[i].Deleted {
			return i
		}
	}
	return -1
}

func (r *memoryUserRepository) emailTaken(email string, except uuid.UUID) bool {
	for i := range r.users {
		// deleted rows still hold their email, like a unique index would
		if r.users[i].Email == email && r.users[i].ID != except {
			return true
		}
	}
	return false
}

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if r.emailTaken(user.Email, uuid.Nil) {
		return ErrDuplicateKey
	}
	now := r.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users = append(r.users, *user)
	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexByID(id)
	if i < 0 {
		return nil, ErrRecordNotFound
	}
	user := r.users[i]
	return &user, nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.users {
		if r.users[i].Email == email && !r.users[i].Deleted {
			user := r.users[i]
			return &user, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (r *memoryUserRepository) List(_ context.Context, offset, limit int) ([]model.User, int64, error) {
	r.mu.RLock()
	live := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		if !u.Deleted {
			live = append(live, u)
		}
	}
	r.mu.RUnlock()

	// ties keep insertion order
	slices.SortStableFunc(live, func(a, b model.User) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	total := int64(len(live))
	offset = max(offset, 0)
	if offset >= len(live) || limit <= 0 {
		return []model.User{}, total, nil
	}
	end := len(live)
	if limit < end-offset {
		end = offset + limit
	}
	return live[offset:end], total, nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(user.ID)
	if i < 0 {
		return ErrRecordNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return ErrDuplicateKey
	}
	user.UpdatedAt = r.now()
	stored := &r.users[i]
	stored.Name = user.Name
	stored.Email = user.Email
	stored.PasswordHash = user.PasswordHash
	stored.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *memoryUserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i < 0 {
		return ErrRecordNotFound
	}
	r.users = slices.Delete(r.users, i, i+1)
	return nil
}

func (r *memoryUserRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexByID(id)
	if i < 0 {
		return ErrRecordNotFound
	}
	r.users[i].Deleted = true
	r.users[i].UpdatedAt = r.now()
	return nil
}
