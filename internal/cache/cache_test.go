package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/nftgateway/internal/domain"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestGetReturnsValueStrictlyBeforeExpiry(t *testing.T) {
	clk := testclock.NewClock(epoch)
	c := New(DefaultConfig(), clk, nil)

	c.SetWithTTL(KindGeneric, "k", "v", time.Minute)

	clk.Advance(59 * time.Second)
	v, ok := c.Get(KindGeneric, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	clk.Advance(time.Second)
	_, ok = c.Get(KindGeneric, "k")
	assert.False(t, ok, "entry must not be returned at expiresAt")
	assert.Equal(t, 0, c.Stats()[KindGeneric].Entries, "expired entry is removed lazily")
}

func TestDefaultTTLPerKind(t *testing.T) {
	clk := testclock.NewClock(epoch)
	c := New(DefaultConfig(), clk, nil)

	c.Set(KindGeneric, "g", 1)
	c.Set(KindProfiles, "p", 2)

	clk.Advance(6 * time.Minute)
	_, ok := c.Get(KindGeneric, "g")
	assert.False(t, ok)
	_, ok = c.Get(KindProfiles, "p")
	assert.True(t, ok)

	clk.Advance(4 * time.Minute)
	_, ok = c.Get(KindProfiles, "p")
	assert.False(t, ok)
}

func TestEvictsOldestInsertion(t *testing.T) {
	c := New(Config{MaxEntries: 3}, testclock.NewClock(epoch), nil)
	for i := 0; i < 3; i++ {
		c.Set(KindFriends, fmt.Sprintf("k%d", i), i)
	}
	// Overwriting k0 makes it the newest insertion.
	c.Set(KindFriends, "k0", 10)
	c.Set(KindFriends, "k3", 3)

	_, ok := c.Get(KindFriends, "k1")
	assert.False(t, ok, "k1 is the oldest live insertion")
	v, ok := c.Get(KindFriends, "k0")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 3, c.Stats()[KindFriends].Entries)
	assert.Equal(t, int64(1), c.Stats()[KindFriends].Evictions)
}

func TestOverwriteDoesNotGrowUnbounded(t *testing.T) {
	c := New(Config{MaxEntries: 2}, testclock.NewClock(epoch), nil)
	for i := 0; i < 100; i++ {
		c.Set(KindGeneric, "same", i)
	}
	p := c.partitions[KindGeneric]
	assert.LessOrEqual(t, len(p.order), 2*p.max+1)
	v, ok := c.Get(KindGeneric, "same")
	assert.True(t, ok)
	assert.Equal(t, 99, v)
}

func TestEvictionSkipsKeysRemovedOnExpiry(t *testing.T) {
	clk := testclock.NewClock(epoch)
	c := New(Config{MaxEntries: 3}, clk, nil)
	for i := 1; i <= 3; i++ {
		c.SetWithTTL(KindProfiles, fmt.Sprintf("x%d", i), i, time.Second)
	}
	clk.Advance(2 * time.Second)
	for i := 1; i <= 3; i++ {
		_, ok := c.Get(KindProfiles, fmt.Sprintf("x%d", i))
		require.False(t, ok)
	}
	require.Equal(t, 0, c.Stats()[KindProfiles].Entries)

	for i := 1; i <= 4; i++ {
		c.Set(KindProfiles, fmt.Sprintf("n%d", i), i)
	}

	stats := c.Stats()[KindProfiles]
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, int64(1), stats.Evictions)
	_, ok := c.Get(KindProfiles, "n1")
	assert.False(t, ok, "n1 is the oldest live insertion")
	for i := 2; i <= 4; i++ {
		v, ok := c.Get(KindProfiles, fmt.Sprintf("n%d", i))
		assert.True(t, ok, "n%d", i)
		assert.Equal(t, i, v)
	}
	p := c.partitions[KindProfiles]
	for i := 1; i <= 3; i++ {
		_, present := p.entries.Load(fmt.Sprintf("x%d", i))
		assert.False(t, present, "x%d must not be resurrected", i)
	}
}

func TestStaleQueueSlotDoesNotEvictLiveEntry(t *testing.T) {
	clk := testclock.NewClock(epoch)
	c := New(Config{MaxEntries: 2}, clk, nil)

	c.SetWithTTL(KindGeneric, "a", "old", time.Second)
	clk.Advance(2 * time.Second)
	_, ok := c.Get(KindGeneric, "a")
	require.False(t, ok)

	c.Set(KindGeneric, "b", "b")
	c.Set(KindGeneric, "c", "c")
	c.Set(KindGeneric, "d", "d")

	_, ok = c.Get(KindGeneric, "b")
	assert.False(t, ok)
	_, ok = c.Get(KindGeneric, "c")
	assert.True(t, ok)
	_, ok = c.Get(KindGeneric, "d")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Stats()[KindGeneric].Entries)
	_, present := c.partitions[KindGeneric].entries.Load("a")
	assert.False(t, present)
}

func TestPartitionsAreIndependent(t *testing.T) {
	c := New(DefaultConfig(), nil, nil)
	c.Set(KindGeneric, "k", "generic")
	c.Set(KindProfiles, "k", "profile")

	c.Clear(KindGeneric)
	_, ok := c.Get(KindGeneric, "k")
	assert.False(t, ok)
	v, ok := c.Get(KindProfiles, "k")
	assert.True(t, ok)
	assert.Equal(t, "profile", v)

	c.ClearAll()
	_, ok = c.Get(KindProfiles, "k")
	assert.False(t, ok)
}

func TestLookupTypeMismatchIsMiss(t *testing.T) {
	c := New(DefaultConfig(), nil, nil)
	c.Set(KindGeneric, "n", 42)

	n, ok := Lookup[int](c, KindGeneric, "n")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = Lookup[string](c, KindGeneric, "n")
	assert.False(t, ok)

	_, ok = Lookup[int]((*Cache)(nil), KindGeneric, "n")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(Config{MaxEntries: 50}, nil, nil)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (w*31+i)%120)
				c.Set(KindTransfers, key, i)
				c.Get(KindTransfers, key)
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats()[KindTransfers].Entries, 50)
}

func TestAddressListIsOrderInsensitive(t *testing.T) {
	a := domain.MustAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb02")
	b := domain.MustAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa01")
	assert.Equal(t, AddressList([]domain.Address{a, b}), AddressList([]domain.Address{b, a}))
	assert.Equal(t, "nfts:ethereum:0xabc", Key("nfts", "ethereum", "0xabc"))
}
