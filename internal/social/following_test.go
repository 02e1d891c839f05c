package social

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func followingPage(users string, next string) string {
	cursor := "null"
	if next != "" {
		cursor = fmt.Sprintf("%q", next)
	}
	return fmt.Sprintf(`{"users":[%s],"next":{"cursor":%s}}`, users, cursor)
}

func user(fid int, name string) string {
	return fmt.Sprintf(`{"object":"follow","user":{"fid":%d,"username":%q,"verified_addresses":{"eth_addresses":["0x%040x"]}}}`, fid, name, fid)
}

func fids(f Following) []uint64 {
	out := make([]uint64, 0, len(f.Profiles))
	for _, p := range f.Profiles {
		out = append(out, p.FID)
	}
	return out
}

func TestListFollowingPaginatesInOrder(t *testing.T) {
	idx := newFakeIndexer()
	idx.handle("/v2/farcaster/following", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("fid"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		switch r.URL.Query().Get("cursor") {
		case "":
			_, _ = io.WriteString(w, followingPage(user(3, "c")+","+user(1, "a"), "p2"))
		case "p2":
			_, _ = io.WriteString(w, followingPage(user(1, "a")+","+user(9, "i"), "p3"))
		case "p3":
			_, _ = io.WriteString(w, followingPage(user(4, "d"), ""))
		}
	})
	srv := httptest.NewServer(idx)
	defer srv.Close()

	r := newTestResolver(t, Config{NeynarBaseURL: srv.URL})
	f, err := r.ListFollowing(context.Background(), 7, FollowingOptions{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1, 9, 4}, fids(f))
	assert.Equal(t, 3, f.PagesFetched)
	assert.False(t, f.Partial)
	assert.Equal(t, "0x0000000000000000000000000000000000000009", string(f.Profiles[2].ConnectedAddresses[0]))

	again, err := r.ListFollowing(context.Background(), 7, FollowingOptions{})
	require.NoError(t, err)
	assert.Equal(t, f, again)
	assert.Equal(t, int32(3), idx.count("/v2/farcaster/following"))
}

func TestListFollowingPageCap(t *testing.T) {
	idx := newFakeIndexer()
	var page atomic.Int32
	idx.handle("/v2/farcaster/following", func(w http.ResponseWriter, r *http.Request) {
		n := int(page.Add(1))
		_, _ = io.WriteString(w, followingPage(user(n, "u"), fmt.Sprintf("c%d", n)))
	})
	srv := httptest.NewServer(idx)
	defer srv.Close()

	f, err := newTestResolver(t, Config{NeynarBaseURL: srv.URL}).ListFollowing(context.Background(), 1, FollowingOptions{MaxPages: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, fids(f))
	assert.True(t, f.Capped)
}

func TestListFollowingPartial(t *testing.T) {
	idx := newFakeIndexer()
	idx.handle("/v2/farcaster/following", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, followingPage(user(1, "a"), "p2"))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(idx)
	defer srv.Close()

	r := newTestResolver(t, Config{NeynarBaseURL: srv.URL})
	f, err := r.ListFollowing(context.Background(), 1, FollowingOptions{})
	require.Error(t, err)
	assert.True(t, f.Partial)
	assert.Equal(t, []uint64{1}, fids(f))

	// Partial results are not cached.
	_, _ = r.ListFollowing(context.Background(), 1, FollowingOptions{})
	assert.Equal(t, int32(4), idx.count("/v2/farcaster/following"))
}

func TestListFollowingFallsBackToV1(t *testing.T) {
	idx := newFakeIndexer()
	idx.handle("/v2/farcaster/following", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	idx.handle("/v1/farcaster/following", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, `{"result":{"users":[{"fid":11,"username":"k"}],"next":{"cursor":"n1"}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"result":{"users":[{"fid":12,"username":"l"}],"next":{"cursor":null}}}`)
	})
	srv := httptest.NewServer(idx)
	defer srv.Close()

	f, err := newTestResolver(t, Config{NeynarBaseURL: srv.URL}).ListFollowing(context.Background(), 5, FollowingOptions{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{11, 12}, fids(f))
	assert.Equal(t, int32(1), idx.count("/v2/farcaster/following"))
}
