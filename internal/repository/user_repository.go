package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"task-manager/internal/model"
	"task-manager/internal/storage"
)

// UsersKey is the storage key holding the serialized user list.
const UsersKey = "users"

// MsgUsernameTaken is returned when registering an existing username.
const MsgUsernameTaken = "Username sudah digunakan"

// NewUserInput holds registration data.
type NewUserInput struct {
	Username string
	Email    string
	FullName string
}

// UserRepository handles CRUD for users.
type UserRepository struct {
	store storage.Store

	mu    sync.RWMutex
	users []model.User
}

func NewUserRepository(ctx context.Context, store storage.Store) (*UserRepository, error) {
	users := []model.User{}
	if _, err := store.Load(ctx, UsersKey, &users); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for i := range users {
		if err := users[i].Validate(); err != nil {
			return nil, fmt.Errorf("load user %q: %w", users[i].ID, err)
		}
	}
	return &UserRepository{store: store, users: users}, nil
}

// Create registers a user; usernames are unique regardless of case.
func (r *UserRepository) Create(ctx context.Context, in NewUserInput) (*model.User, error) {
	user, err := model.NewUser(in.Username, in.Email, in.FullName)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexByUsernameLocked(user.Username) >= 0 {
		return nil, &model.ValidationError{Field: "username", Message: MsgUsernameTaken}
	}
	r.users = append(r.users, *user)
	if err := r.saveLocked(ctx); err != nil {
		return nil, err
	}
	out := *user
	return &out, nil
}

func (r *UserRepository) FindByID(id string) (*model.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ID == id {
			return &u, true
		}
	}
	return nil, false
}

func (r *UserRepository) FindByUsername(username string) (*model.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexByUsernameLocked(username)
	if idx < 0 {
		return nil, false
	}
	u := r.users[idx]
	return &u, true
}

func (r *UserRepository) FindAll() []model.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.User, len(r.users))
	copy(out, r.users)
	return out
}

// TouchLogin records the login time for id.
func (r *UserRepository) TouchLogin(ctx context.Context, id string) (*model.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].ID != id {
			continue
		}
		r.users[i].MarkLogin()
		if err := r.saveLocked(ctx); err != nil {
			return nil, true, err
		}
		u := r.users[i]
		return &u, true, nil
	}
	return nil, false, nil
}

func (r *UserRepository) indexByUsernameLocked(username string) int {
	username = strings.TrimSpace(username)
	for i, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return i
		}
	}
	return -1
}

func (r *UserRepository) saveLocked(ctx context.Context) error {
	if err := r.store.Save(ctx, UsersKey, r.users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}
