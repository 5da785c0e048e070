package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kh1012/half/internal/domain"
	"github.com/kh1012/half/internal/localstore"
	apperrors "github.com/kh1012/half/pkg/errors"
	"github.com/kh1012/half/pkg/logger"
)

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	updates  []map[string]interface{}
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*domain.Profile)}
}

func (f *fakeProfileStore) GetProfile(ctx context.Context, browserID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[browserID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, apperrors.NewNotFoundError("profile not found")
}

func (f *fakeProfileStore) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *profile
	f.profiles[profile.BrowserID] = &copied
	return nil
}

func (f *fakeProfileStore) UpdateProfile(ctx context.Context, browserID string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, fields)
	return nil
}

func setupTestStore(t *testing.T) (*localstore.Store, *fakeProfileStore, *Store) {
	local, err := localstore.OpenInMemory(logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		local.Close()
	})

	profiles := newFakeProfileStore()
	return local, profiles, NewStore(local, profiles, logger.NewNop())
}

func TestStore_Load_GeneratesIdentityOnce(t *testing.T) {
	local, _, store := setupTestStore(t)

	id, err := store.Load()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = uuid.Parse(id)
	assert.NoError(t, err, "browser id must be a uuid")

	// A second store over the same persistence resolves the same id
	again := NewStore(local, newFakeProfileStore(), logger.NewNop())
	id2, err := again.Load()
	require.NoError(t, err)
	assert.Equal(t, id, id2)
}

func TestStore_Load_DefaultNickname(t *testing.T) {
	_, _, store := setupTestStore(t)

	_, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultNickname, store.Nickname())
	assert.False(t, store.HasSetNickname())
}

func TestStore_SetDisplayName(t *testing.T) {
	local, _, store := setupTestStore(t)
	_, err := store.Load()
	require.NoError(t, err)

	require.NoError(t, store.SetDisplayName("  casey  "))
	assert.Equal(t, "casey", store.Nickname())
	assert.True(t, store.HasSetNickname())

	// The name survives a reload
	again := NewStore(local, newFakeProfileStore(), logger.NewNop())
	_, err = again.Load()
	require.NoError(t, err)
	assert.Equal(t, "casey", again.Nickname())
	assert.True(t, again.HasSetNickname())
}

func TestStore_SetDisplayName_RejectsEmpty(t *testing.T) {
	_, _, store := setupTestStore(t)
	_, err := store.Load()
	require.NoError(t, err)

	err = store.SetDisplayName("   ")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, domain.DefaultNickname, store.Nickname())
}

func TestStore_EnsureProfile_CreatesWhenMissing(t *testing.T) {
	_, profiles, store := setupTestStore(t)
	id, err := store.Load()
	require.NoError(t, err)

	ts, err := store.EnsureProfile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ts, "a freshly created profile has no generation timestamp")

	profiles.mu.Lock()
	_, exists := profiles.profiles[id]
	profiles.mu.Unlock()
	assert.True(t, exists)
}

func TestStore_EnsureProfile_ReturnsRemoteTimestamp(t *testing.T) {
	_, profiles, store := setupTestStore(t)
	id, err := store.Load()
	require.NoError(t, err)

	generatedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	profiles.mu.Lock()
	profiles.profiles[id] = &domain.Profile{
		BrowserID:               id,
		LastNickname:            "elsewhere",
		LastQuestionGeneratedAt: &generatedAt,
	}
	profiles.mu.Unlock()

	ts, err := store.EnsureProfile(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.True(t, generatedAt.Equal(*ts))
}
