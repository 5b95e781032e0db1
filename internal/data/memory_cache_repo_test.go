package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedMemoryRepo(start time.Time) (*MemoryCacheRepo, *time.Time) {
	now := start
	repo := NewMemoryCacheRepo()
	repo.now = func() time.Time { return now }
	return repo, &now
}

func TestMemoryCacheRepo_SetGetDelete(t *testing.T) {
	repo := NewMemoryCacheRepo()
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	deleted, err := repo.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err = repo.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMemoryCacheRepo_Expiry(t *testing.T) {
	repo, now := newClockedMemoryRepo(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), time.Minute))

	*now = now.Add(59 * time.Second)
	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	*now = now.Add(2 * time.Second)
	got, err = repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheRepo_SetWithoutTTLNeverExpires(t *testing.T) {
	repo, now := newClockedMemoryRepo(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), 0))

	*now = now.Add(24 * time.Hour)
	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCacheRepo_IncrementWithTTL(t *testing.T) {
	repo, now := newClockedMemoryRepo(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	n, err := repo.IncrementWithTTL(ctx, "window", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.IncrementWithTTL(ctx, "window", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// The expiry belongs to the window start; later increments do not slide it.
	*now = now.Add(45 * time.Second)
	n, err = repo.IncrementWithTTL(ctx, "window", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	*now = now.Add(16 * time.Second)
	n, err = repo.IncrementWithTTL(ctx, "window", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired window restarts from one")
}

func TestMemoryCacheRepo_EmptyKeyValidation(t *testing.T) {
	repo := NewMemoryCacheRepo()
	ctx := context.Background()

	assert.Error(t, repo.Set(ctx, "", []byte("v"), time.Minute))

	_, err := repo.Get(ctx, "")
	assert.Error(t, err)

	_, err = repo.Delete(ctx, "")
	assert.Error(t, err)

	_, err = repo.IncrementWithTTL(ctx, "", time.Minute)
	assert.Error(t, err)
}

func TestMemoryCacheRepo_Health(t *testing.T) {
	repo := NewMemoryCacheRepo()
	assert.NoError(t, repo.Health(context.Background()))
}
