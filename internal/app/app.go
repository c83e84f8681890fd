// Package app wires storage, repositories and services into one context that is
// built once at startup and handed to the front end.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"task-manager/internal/config"
	"task-manager/internal/repository"
	"task-manager/internal/service"
	"task-manager/internal/storage"
)

type App struct {
	Config config.Config
	Store  storage.Store

	Tasks *repository.TaskRepository
	Users *repository.UserRepository

	TaskService     *service.TaskService
	UserService     *service.UserService
	ReminderService *service.ReminderService
	ExportService   *service.ExportService

	closers []func() error
}

// New opens the configured backend and loads every collection from it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg}

	base, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.init(ctx, storage.Namespaced(base, cfg.Namespace)); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStore builds the application on an already opened store.
func NewWithStore(ctx context.Context, cfg config.Config, store storage.Store) (*App, error) {
	a := &App{Config: cfg}
	if err := a.init(ctx, store); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, store storage.Store) error {
	tasks, err := repository.NewTaskRepository(ctx, store)
	if err != nil {
		return err
	}
	users, err := repository.NewUserRepository(ctx, store)
	if err != nil {
		return err
	}
	userSvc, err := service.NewUserService(ctx, users, store)
	if err != nil {
		return err
	}
	if _, err := userSvc.EnsureDemoUser(ctx); err != nil {
		return err
	}

	a.Store = store
	a.Tasks = tasks
	a.Users = users
	a.UserService = userSvc
	a.TaskService = service.NewTaskService(tasks, users, a.Config.DueSoonDays)
	a.ReminderService = service.NewReminderService(tasks, a.Config.DueSoonDays)
	a.ExportService = service.NewExportService(tasks, users)

	log.WithFields(log.Fields{
		"tasks": len(tasks.FindAll()),
		"users": len(users.FindAll()),
	}).Info("data loaded")
	return nil
}

func (a *App) openStore(ctx context.Context) (storage.Store, error) {
	switch a.Config.StorageBackend {
	case config.BackendSQLite, "":
		db, err := storage.NewDB(a.Config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		log.WithField("dsn", a.Config.DatabaseURL).Info("using sqlite storage")
		return storage.NewSQLite(db), nil
	case config.BackendRedis:
		opts, err := redis.ParseURL(a.Config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.WithField("addr", opts.Addr).Info("using redis storage")
		return storage.NewRedis(client), nil
	case config.BackendMemory:
		log.Warn("using in-memory storage, data is lost on exit")
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.Config.StorageBackend)
	}
}

// Close releases the storage connections.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
