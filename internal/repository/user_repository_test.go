package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/model"
	"task-manager/internal/storage"
)

func newUserRepo(t *testing.T) (*UserRepository, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	repo, err := NewUserRepository(context.Background(), store)
	require.NoError(t, err)
	return repo, store
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo, store := newUserRepo(t)

	u, err := repo.Create(context.Background(), NewUserInput{Username: " alice ", Email: "alice@example.com", FullName: "Alice A"})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, 1, store.saveCount())

	byID, ok := repo.FindByID(u.ID)
	require.True(t, ok)
	assert.Equal(t, "Alice A", byID.DisplayName())

	byName, ok := repo.FindByUsername("ALICE")
	require.True(t, ok)
	assert.Equal(t, u.ID, byName.ID)

	_, ok = repo.FindByUsername("bob")
	assert.False(t, ok)
	_, ok = repo.FindByID("nope")
	assert.False(t, ok)
}

func TestUserRepository_CreateRejects(t *testing.T) {
	repo, store := newUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, NewUserInput{Username: "alice"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, NewUserInput{Username: "Alice"})
	require.Error(t, err)
	assert.Equal(t, MsgUsernameTaken, err.Error())
	assert.True(t, model.IsValidationError(err))

	_, err = repo.Create(ctx, NewUserInput{Username: "al"})
	assert.Equal(t, model.MsgUsernameTooShort, err.Error())

	_, err = repo.Create(ctx, NewUserInput{Username: "carol", Email: "not-an-email"})
	assert.Equal(t, model.MsgEmailInvalid, err.Error())

	assert.Len(t, repo.FindAll(), 1)
	assert.Equal(t, 1, store.saveCount())
}

func TestUserRepository_TouchLoginAndReload(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	repo, err := NewUserRepository(ctx, store)
	require.NoError(t, err)

	u, err := repo.Create(ctx, NewUserInput{Username: "dave"})
	require.NoError(t, err)
	assert.Nil(t, u.LastLoginAt)

	touched, found, err := repo.TouchLogin(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotNil(t, touched.LastLoginAt)

	_, found, err = repo.TouchLogin(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, found)

	reloaded, err := NewUserRepository(ctx, store)
	require.NoError(t, err)
	got, ok := reloaded.FindByUsername("dave")
	require.True(t, ok)
	assert.NotNil(t, got.LastLoginAt)
}

func TestUserRepository_FindAllReturnsCopy(t *testing.T) {
	repo, _ := newUserRepo(t)
	_, err := repo.Create(context.Background(), NewUserInput{Username: "erin"})
	require.NoError(t, err)

	all := repo.FindAll()
	all[0].Username = "mallory"
	_, ok := repo.FindByUsername("erin")
	assert.True(t, ok)
}

func TestNewUserRepository_Errors(t *testing.T) {
	ctx := context.Background()

	failing := newFakeStore()
	failing.loadErr = errors.New("boom")
	_, err := NewUserRepository(ctx, failing)
	require.Error(t, err)

	bad := storage.NewMemory()
	require.NoError(t, bad.Save(ctx, UsersKey, []model.User{{ID: "1", Username: "x"}}))
	_, err = NewUserRepository(ctx, bad)
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
}

func TestNewUserRepository_MistypedPayloadLoadsNothing(t *testing.T) {
	store := storage.NewMemory()
	payload := []byte(`[{"id":"1","username":"erin"},{"id":"2","username":["frank"]}]`)
	store.PutRaw(UsersKey, payload)

	repo, err := NewUserRepository(context.Background(), store)
	require.NoError(t, err)
	assert.Empty(t, repo.FindAll())
	_, ok := repo.FindByUsername("erin")
	assert.False(t, ok)
}

func TestUserRepository_SaveFailure(t *testing.T) {
	repo, store := newUserRepo(t)
	store.saveErr = storage.ErrQuotaExceeded

	_, err := repo.Create(context.Background(), NewUserInput{Username: "frank"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrQuotaExceeded))
}
