package upstream

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource serves pages of ints keyed by cursor "0", "1", ...
func pagedSource(pages [][]int, failAt int) PageFunc[int] {
	return func(_ context.Context, cursor string) ([]int, string, error) {
		i := 0
		if cursor != "" {
			i, _ = strconv.Atoi(cursor)
		}
		if i == failAt {
			return nil, "", errors.New("page failed")
		}
		next := ""
		if i+1 < len(pages) {
			next = strconv.Itoa(i + 1)
		}
		return pages[i], next, nil
	}
}

func TestPagesConcatenatesInCursorOrder(t *testing.T) {
	p := NewPages(pagedSource([][]int{{1, 2}, {3}, {4, 5}}, -1), 0)
	got, err := Collect(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
	assert.Equal(t, 3, p.Fetched())
	assert.False(t, p.Capped())

	_, ok := p.Next(context.Background())
	assert.False(t, ok, "sequence is not restartable")
}

func TestPagesStopsOnEmptyPage(t *testing.T) {
	p := NewPages(pagedSource([][]int{{1}, {}, {3}}, -1), 0)
	got, err := Collect(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestPagesCap(t *testing.T) {
	p := NewPages(pagedSource([][]int{{1}, {2}, {3}}, -1), 2)
	got, err := Collect(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
	assert.True(t, p.Capped())
}

func TestPagesErrorKeepsAccumulated(t *testing.T) {
	p := NewPages(pagedSource([][]int{{1}, {2}, {3}}, 1), 0)
	got, err := Collect(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, []int{1}, got)
}
