package repository

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/nftgateway/internal/domain"
)

func TestMemoryFolderStore_Lifecycle(t *testing.T) {
	store := NewMemoryFolderStore()
	ctx := context.Background()

	f := sampleFolder()
	require.NoError(t, store.Create(ctx, f))
	assert.True(t, errors.Is(store.Create(ctx, f), errors.AlreadyExists))

	got, err := store.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	got.Items[0].TokenID = "mutated"
	again, err := store.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "7", again.Items[0].TokenID)

	got.Name = "Renamed"
	require.NoError(t, store.Update(ctx, got))
	again, err = store.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Name)

	require.NoError(t, store.Delete(ctx, f.ID))
	_, err = store.Get(ctx, f.ID)
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.True(t, errors.Is(store.Delete(ctx, f.ID), errors.NotFound))
}

func TestMemoryFolderStore_UpdateMissing(t *testing.T) {
	store := NewMemoryFolderStore()
	err := store.Update(context.Background(), sampleFolder())
	assert.True(t, errors.Is(err, errors.NotFound))

	_, err = store.Get(context.Background(), "f-1")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestMemoryFolderStore_Listing(t *testing.T) {
	store := NewMemoryFolderStore()
	ctx := context.Background()
	folders := []domain.Folder{
		{ID: "c", Owner: "alice", IsPublic: true, CreatedAt: created.Add(2 * time.Hour)},
		{ID: "a", Owner: "alice", CreatedAt: created},
		{ID: "b", Owner: "bob", IsPublic: true, CreatedAt: created.Add(time.Hour)},
	}
	for _, f := range folders {
		require.NoError(t, store.Create(ctx, f))
	}

	mine, err := store.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "a", mine[0].ID)
	assert.Equal(t, "c", mine[1].ID)

	public, err := store.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "b", public[0].ID)

	none, err := store.ListByOwner(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}
