package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vanshika/nftgateway/internal/domain"
	"github.com/vanshika/nftgateway/internal/repository"
)

const contractHex = "0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD"

var epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*FolderService, *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(epoch)
	svc := NewFolderService(repository.NewMemoryFolderStore(), clk, zaptest.NewLogger(t))
	var n int
	svc.newID = func() string {
		n++
		return fmt.Sprintf("folder-%d", n)
	}
	return svc, clk
}

func TestFolderService_CreateNormalizes(t *testing.T) {
	svc, _ := newTestService(t)

	f, err := svc.Create(context.Background(), "alice", FolderInput{
		Name:        "  My \t favourite\n punks ",
		Description: " rare ",
		Items: []ItemInput{
			{Chain: "ETH", Contract: contractHex, TokenID: "1"},
			{Chain: "mainnet", ContractAddress: strings.ToLower(contractHex), TokenID: "1"},
			{Chain: "arb", Contract: contractHex, TokenID: "0x1F"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "folder-1", f.ID)
	assert.Equal(t, "alice", f.Owner)
	assert.Equal(t, "My favourite punks", f.Name)
	assert.Equal(t, "rare", f.Description)
	assert.True(t, f.CreatedAt.Equal(epoch))
	require.Len(t, f.Items, 2)
	assert.Equal(t, domain.ChainEthereum, f.Items[0].Chain)
	assert.Equal(t, domain.Address(strings.ToLower(contractHex)), f.Items[0].Contract)
	assert.Equal(t, domain.ChainArbitrum, f.Items[1].Chain)
	assert.Equal(t, "0x1f", f.Items[1].TokenID)
	assert.True(t, f.Items[1].AddedAt.Equal(epoch))
}

func TestFolderService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]FolderInput{
		"empty name":    {Name: "   "},
		"long name":     {Name: strings.Repeat("n", maxNameLength+1)},
		"bad chain":     {Name: "x", Items: []ItemInput{{Chain: "solana", Contract: contractHex, TokenID: "1"}}},
		"bad contract":  {Name: "x", Items: []ItemInput{{Chain: "eth", Contract: "0x12", TokenID: "1"}}},
		"bad token id":  {Name: "x", Items: []ItemInput{{Chain: "eth", Contract: contractHex, TokenID: "one"}}},
		"empty tokenId": {Name: "x", Items: []ItemInput{{Chain: "eth", Contract: contractHex}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, "alice", in)
			assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)
		})
	}

	_, err := svc.Create(ctx, "", FolderInput{Name: "x"})
	assert.True(t, errors.Is(err, errors.Unauthorized))

	name := strings.Repeat("é", maxNameLength)
	f, err := svc.Create(ctx, "alice", FolderInput{Name: name})
	require.NoError(t, err)
	assert.Equal(t, name, f.Name)
}

func TestFolderService_Ownership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	private, err := svc.Create(ctx, "alice", FolderInput{Name: "secret"})
	require.NoError(t, err)
	public, err := svc.Create(ctx, "alice", FolderInput{Name: "shared", IsPublic: true})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "bob", private.ID)
	assert.True(t, errors.Is(err, errors.Forbidden))

	got, err := svc.Get(ctx, "bob", public.ID)
	require.NoError(t, err)
	assert.Equal(t, "shared", got.Name)

	_, err = svc.Replace(ctx, "bob", public.ID, FolderInput{Name: "mine now"})
	assert.True(t, errors.Is(err, errors.Forbidden))
	assert.True(t, errors.Is(svc.Delete(ctx, "bob", public.ID), errors.Forbidden))

	_, err = svc.Get(ctx, "alice", "nope")
	assert.True(t, errors.Is(err, errors.NotFound))

	mine, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	listed, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, public.ID, listed[0].ID)
}

func TestFolderService_PatchAndReplace(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, "alice", FolderInput{
		Name:  "first",
		Items: []ItemInput{{Chain: "eth", Contract: contractHex, TokenID: "1"}},
	})
	require.NoError(t, err)

	clk.Advance(time.Minute)
	public := true
	desc := "  now   public "
	patched, err := svc.Patch(ctx, "alice", f.ID, FolderPatch{IsPublic: &public, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "first", patched.Name)
	assert.Equal(t, "now public", patched.Description)
	assert.True(t, patched.IsPublic)
	assert.Len(t, patched.Items, 1)
	assert.True(t, patched.UpdatedAt.Equal(epoch.Add(time.Minute)))
	assert.True(t, patched.CreatedAt.Equal(epoch))

	empty := ""
	_, err = svc.Patch(ctx, "alice", f.ID, FolderPatch{Name: &empty})
	assert.True(t, errors.Is(err, errors.NotValid))

	replaced, err := svc.Replace(ctx, "alice", f.ID, FolderInput{Name: "second"})
	require.NoError(t, err)
	assert.Equal(t, "second", replaced.Name)
	assert.False(t, replaced.IsPublic)
	assert.Empty(t, replaced.Items)

	stored, err := svc.Get(ctx, "alice", f.ID)
	require.NoError(t, err)
	assert.Equal(t, replaced, stored)
}

func TestFolderService_Items(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, "alice", FolderInput{Name: "items"})
	require.NoError(t, err)

	_, err = svc.AddItems(ctx, "alice", f.ID, nil)
	assert.True(t, errors.Is(err, errors.BadRequest))

	clk.Advance(time.Hour)
	f, err = svc.AddItems(ctx, "alice", f.ID, []ItemInput{
		{Chain: "base", Contract: contractHex, TokenID: "5"},
		{Chain: "polygon", Contract: contractHex, TokenID: "5"},
	})
	require.NoError(t, err)
	require.Len(t, f.Items, 2)
	assert.True(t, f.Items[0].AddedAt.Equal(epoch.Add(time.Hour)))

	clk.Advance(time.Hour)
	f, err = svc.AddItems(ctx, "alice", f.ID, []ItemInput{{Chain: "base", Contract: contractHex, TokenID: "5"}})
	require.NoError(t, err)
	require.Len(t, f.Items, 2)
	assert.True(t, f.Items[0].AddedAt.Equal(epoch.Add(time.Hour)), "re-adding keeps the original timestamp")

	f, err = svc.RemoveItem(ctx, "alice", f.ID, ItemInput{Chain: "base", Contract: contractHex, TokenID: "5"})
	require.NoError(t, err)
	require.Len(t, f.Items, 1)
	assert.Equal(t, domain.ChainPolygon, f.Items[0].Chain)

	_, err = svc.RemoveItem(ctx, "alice", f.ID, ItemInput{Chain: "base", Contract: contractHex, TokenID: "5"})
	assert.True(t, errors.Is(err, errors.NotFound))

	require.NoError(t, svc.Delete(ctx, "alice", f.ID))
	_, err = svc.Get(ctx, "alice", f.ID)
	assert.True(t, errors.Is(err, errors.NotFound))
}
