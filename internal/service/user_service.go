package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"

	"task-manager/internal/model"
	"task-manager/internal/repository"
	"task-manager/internal/storage"
)

const (
	MsgUserNotFound = "User tidak ditemukan"
	MsgRegistered   = "Registrasi berhasil"
	MsgLoggedIn     = "Login berhasil"
	MsgLoggedOut    = "Logout berhasil"
	MsgNotLoggedIn  = "Anda belum login"
	DemoUsername    = "demo"
	sessionsKey     = "sessions"
	demoEmail       = "demo@example.com"
	demoFullName    = "Demo User"
)

// UserService manages accounts and which user each chat is logged in as.
// Login is a plain username lookup; there are no credentials.
type UserService struct {
	users *repository.UserRepository
	store storage.Store

	mu       sync.RWMutex
	sessions map[string]string
}

// NewUserService restores saved sessions from store.
func NewUserService(ctx context.Context, users *repository.UserRepository, store storage.Store) (*UserService, error) {
	sessions := map[string]string{}
	if _, err := store.Load(ctx, sessionsKey, &sessions); err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	if sessions == nil {
		sessions = map[string]string{}
	}
	return &UserService{users: users, store: store, sessions: sessions}, nil
}

// Register creates the account and logs chatID into it.
func (s *UserService) Register(ctx context.Context, chatID int64, in repository.NewUserInput) Response[*model.User] {
	user, err := s.users.Create(ctx, in)
	if err != nil {
		return failure[*model.User]("register user", err)
	}
	log.WithFields(log.Fields{"user": user.ID, "username": user.Username}).Info("user registered")

	if err := s.setSession(ctx, chatID, user.ID); err != nil {
		return failure[*model.User]("save session", err)
	}
	return ok(user, MsgRegistered)
}

func (s *UserService) Login(ctx context.Context, chatID int64, username string) Response[*model.User] {
	found, exists := s.users.FindByUsername(username)
	if !exists {
		return fail[*model.User](MsgUserNotFound)
	}
	user, _, err := s.users.TouchLogin(ctx, found.ID)
	if err != nil {
		return failure[*model.User]("touch login", err)
	}
	if err := s.setSession(ctx, chatID, user.ID); err != nil {
		return failure[*model.User]("save session", err)
	}
	return ok(user, MsgLoggedIn)
}

func (s *UserService) Logout(ctx context.Context, chatID int64) Response[*model.User] {
	user, exists := s.CurrentUser(chatID)
	if !exists {
		return fail[*model.User](MsgNotLoggedIn)
	}
	if err := s.setSession(ctx, chatID, ""); err != nil {
		return failure[*model.User]("save session", err)
	}
	return ok(user, MsgLoggedOut)
}

// CurrentUser resolves the user chatID is logged in as. A session pointing at a
// missing user counts as logged out.
func (s *UserService) CurrentUser(chatID int64) (*model.User, bool) {
	s.mu.RLock()
	userID, exists := s.sessions[sessionKey(chatID)]
	s.mu.RUnlock()
	if !exists {
		return nil, false
	}
	return s.users.FindByID(userID)
}

// Sessions returns chat id to user id for every logged-in chat.
func (s *UserService) Sessions() map[int64]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]string, len(s.sessions))
	for key, userID := range s.sessions {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		out[chatID] = userID
	}
	return out
}

func (s *UserService) GetAllUsers() Response[[]model.User] {
	return okList(s.users.FindAll(), "")
}

// EnsureDemoUser seeds the demo account when no user exists yet.
func (s *UserService) EnsureDemoUser(ctx context.Context) (*model.User, error) {
	if len(s.users.FindAll()) > 0 {
		return nil, nil
	}
	user, err := s.users.Create(ctx, repository.NewUserInput{
		Username: DemoUsername,
		Email:    demoEmail,
		FullName: demoFullName,
	})
	if err != nil {
		return nil, fmt.Errorf("create demo user: %w", err)
	}
	log.WithField("user", user.ID).Info("demo user created")
	return user, nil
}

// setSession logs chatID into userID; an empty userID logs it out.
func (s *UserService) setSession(ctx context.Context, chatID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(chatID)
	if userID == "" {
		delete(s.sessions, key)
	} else {
		s.sessions[key] = userID
	}
	if err := s.store.Save(ctx, sessionsKey, s.sessions); err != nil {
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

func sessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
