package repository

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/bizchat/bizchat-api/internal/model"
)

// MemoryUserRepository is an in-memory UserRepository with the same error
// contract as the Mongo implementation. Used in tests and when running
// without a database.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*model.User

	// Err, when set, makes every operation fail with it.
	Err error
}

// NewMemoryUserRepository creates an empty in-memory repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*model.User)}
}

func (r *MemoryUserRepository) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}

	if _, ok := r.users[user.ID]; ok {
		return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.users[user.ID] = &stored

	return user, nil
}

func (r *MemoryUserRepository) GetUser(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}

	user, ok := r.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) UpdateProfile(
	_ context.Context,
	id string,
	params UpdateProfileParams,
) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.locked(id)
	if err != nil {
		return nil, err
	}

	if params.Phone != nil {
		user.Phone = *params.Phone
	}
	if params.Role != nil {
		user.Role = *params.Role
	}
	if params.BusinessRole != nil {
		user.BusinessRole = *params.BusinessRole
	}
	user.UpdatedAt = time.Now()

	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) SetVerificationCode(
	_ context.Context,
	id, code string,
	expiresAt time.Time,
) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.locked(id)
	if err != nil {
		return nil, err
	}

	user.VerificationCode = &code
	user.VerificationCodeExpiresAt = &expiresAt
	user.UpdatedAt = time.Now()

	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) MarkVerified(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.locked(id)
	if err != nil {
		return nil, err
	}

	user.Verified = true
	user.VerificationCode = nil
	user.VerificationCodeExpiresAt = nil
	user.UpdatedAt = time.Now()

	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) UpdateStatus(
	_ context.Context,
	id string,
	status model.Status,
	lastSeenAt time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.locked(id)
	if err != nil {
		return err
	}

	user.Status = status
	user.LastSeenAt = lastSeenAt

	return nil
}

// Put stores a user directly, bypassing the create contract. Test helper.
func (r *MemoryUserRepository) Put(user *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *user
	r.users[user.ID] = &copied
}

// locked returns the stored user for id; callers must hold the lock.
func (r *MemoryUserRepository) locked(id string) (*model.User, error) {
	if r.Err != nil {
		return nil, r.Err
	}

	user, ok := r.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}

	return user, nil
}
