package app

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/config"
	"task-manager/internal/service"
	"task-manager/internal/storage"
)

func TestNew_SQLitePersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		StorageBackend: config.BackendSQLite,
		DatabaseURL:    filepath.Join(t.TempDir(), "data", "tasks.db"),
		Namespace:      "taskApp",
		DueSoonDays:    3,
	}

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	demo, ok := a.Users.FindByUsername(service.DemoUsername)
	require.True(t, ok)

	resp := a.TaskService.CreateTask(ctx, demo.ID, service.TaskDraft{Title: "persist me"})
	require.True(t, resp.Success, resp.Error)
	require.NoError(t, a.Close())

	reopened, err := New(ctx, cfg)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Len(t, reopened.Users.FindAll(), 1)
	tasks := reopened.Tasks.FindAll()
	require.Len(t, tasks, 1)
	assert.Equal(t, "persist me", tasks[0].Title())
}

func TestNew_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	a, err := New(ctx, config.Config{
		StorageBackend: config.BackendRedis,
		RedisURL:       "redis://" + mr.Addr() + "/0",
		Namespace:      "teamA",
	})
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, mr.Exists("teamA_users"))
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = New(context.Background(), config.Config{
		StorageBackend: config.BackendRedis,
		RedisURL:       "redis://" + addr + "/0",
	})
	assert.Error(t, err)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), config.Config{StorageBackend: "postgres"})
	assert.Error(t, err)
}

func TestNewWithStore_SeedsDemoOnce(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	a, err := NewWithStore(ctx, config.Config{}, store)
	require.NoError(t, err)
	assert.Len(t, a.Users.FindAll(), 1)

	b, err := NewWithStore(ctx, config.Config{}, store)
	require.NoError(t, err)
	assert.Len(t, b.Users.FindAll(), 1)
	assert.NotNil(t, b.ExportService)
	assert.NotNil(t, b.ReminderService)
}
