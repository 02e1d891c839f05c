package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/graph"
)

var (
	created  = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	contract = domain.MustAddress("0x1111111111111111111111111111111111111111")
)

func sampleFolder() domain.Folder {
	return domain.Folder{
		ID:        "f-1",
		Owner:     "user-1",
		Name:      "Punks",
		IsPublic:  true,
		CreatedAt: created,
		UpdatedAt: created,
		Items: []domain.FolderItem{
			{Chain: domain.ChainEthereum, Contract: contract, TokenID: "7", AddedAt: created},
			{Chain: domain.ChainBase, Contract: contract, TokenID: "8", AddedAt: created},
		},
	}
}

func TestFolderRepository_Create(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	require.NoError(t, repo.Create(context.Background(), sampleFolder()))

	calls := mem.WriteCalls()
	require.Len(t, calls, 1)
	assert.True(t, strings.Contains(calls[0].Query, "CREATE (f:Folder {folderId: $folderId})"))
	assert.Equal(t, "f-1", calls[0].Params["folderId"])

	props := calls[0].Params["props"].(map[string]any)
	assert.Equal(t, "user-1", props["owner"])
	assert.Equal(t, true, props["isPublic"])
	assert.Equal(t, "2024-03-01T12:00:00Z", props["createdAt"])

	items := calls[0].Params["items"].([]map[string]any)
	require.Len(t, items, 2)
	assert.Equal(t, "base:"+contract.String()+":8", items[1]["key"])
	assert.Equal(t, 1, items[1]["position"])
}

func TestFolderRepository_CreateRequiresID(t *testing.T) {
	repo := New(graph.NewMemoryClient())
	f := sampleFolder()
	f.ID = ""
	assert.True(t, errors.Is(repo.Create(context.Background(), f), errors.NotValid))
}

func TestFolderRepository_Get(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.Push(graph.Result{Records: []graph.Record{{
		"folderId":    "f-1",
		"owner":       "user-1",
		"name":        "Punks",
		"description": nil,
		"isPublic":    true,
		"createdAt":   "2024-03-01T12:00:00Z",
		"updatedAt":   "2024-03-01T12:00:00Z",
		"items": []any{
			map[string]any{"chain": "ethereum", "contract": contract.String(), "tokenId": "7", "addedAt": "2024-03-01T12:00:00Z"},
		},
	}}})
	repo := New(mem)

	f, err := repo.Get(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "Punks", f.Name)
	assert.True(t, f.IsPublic)
	assert.True(t, f.CreatedAt.Equal(created))
	require.Len(t, f.Items, 1)
	assert.Equal(t, domain.ChainEthereum, f.Items[0].Chain)
	assert.Equal(t, contract, f.Items[0].Contract)
	assert.Equal(t, "f-1", mem.ReadCalls()[0].Params["folderId"])
}

func TestFolderRepository_NotFound(t *testing.T) {
	repo := New(graph.NewMemoryClient())
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.True(t, errors.Is(repo.Update(ctx, sampleFolder()), errors.NotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, "missing"), errors.NotFound))
}

func TestFolderRepository_UpdateAndDelete(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.Push(graph.Result{Records: []graph.Record{{"folderId": "f-1"}}})
	mem.Push(graph.Result{Records: []graph.Record{{"folderId": "f-1"}}})
	repo := New(mem)
	ctx := context.Background()

	require.NoError(t, repo.Update(ctx, sampleFolder()))
	require.NoError(t, repo.Delete(ctx, "f-1"))

	calls := mem.WriteCalls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Query, "MATCH (f:Folder {folderId: $folderId})")
	assert.Equal(t, deleteFolderCypher, calls[1].Query)
}

func TestFolderRepository_ListPropagatesErrors(t *testing.T) {
	boom := errors.New("bolt down")
	repo := New(graph.NewMemoryClient().WithError(boom))

	_, err := repo.ListByOwner(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, boom, errors.Cause(err))
}

func TestFolderRepository_ListPublic(t *testing.T) {
	mem := graph.NewMemoryClient()
	mem.Push(graph.Result{Records: []graph.Record{
		{"folderId": "a", "isPublic": true},
		{"folderId": "b", "isPublic": true},
	}})
	repo := New(mem)

	folders, err := repo.ListPublic(context.Background())
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "b", folders[1].ID)
	assert.NotNil(t, folders[0].Items)
	assert.Contains(t, mem.ReadCalls()[0].Query, "f.isPublic = true")
}
