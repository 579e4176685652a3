package cache

import (
	"testing"
	"time"

	"github.com/klkchan/klkchan/internal/models"
	"github.com/stretchr/testify/require"
)

func TestListingCacheBoards(t *testing.T) {
	lc := NewListingCache(10, time.Minute)
	defer lc.Stop()

	_, _, ok := lc.GetBoards(0, 50)
	require.False(t, ok)

	boards := []*models.Board{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	lc.SetBoards(0, 50, boards, 2)

	got, next, ok := lc.GetBoards(0, 50)
	require.True(t, ok)
	require.Equal(t, boards, got)
	require.EqualValues(t, 2, next)

	// other cursor or limit is a different key
	_, _, ok = lc.GetBoards(2, 50)
	require.False(t, ok)

	stats := lc.GetStats()
	require.EqualValues(t, 1, stats["hits"])
	require.EqualValues(t, 2, stats["misses"])
	require.Greater(t, lc.GetCachedSize(), int64(0))
}

func TestListingCachePopularAndClear(t *testing.T) {
	lc := NewListingCache(10, time.Minute)
	defer lc.Stop()

	lc.SetPopular(10, []*models.Post{{ID: 5, Title: "hot"}})
	posts, ok := lc.GetPopular(10)
	require.True(t, ok)
	require.Len(t, posts, 1)

	lc.Clear()
	_, ok = lc.GetPopular(10)
	require.False(t, ok)
	require.Zero(t, lc.GetCachedSize())
}

func TestListingCacheExpiry(t *testing.T) {
	lc := NewListingCache(10, 10*time.Millisecond)
	defer lc.Stop()

	lc.SetPopular(10, nil)
	time.Sleep(20 * time.Millisecond)
	_, ok := lc.GetPopular(10)
	require.False(t, ok)
	require.Zero(t, lc.Len())
}

func TestListingCacheEvictsLeastRecentlyUsed(t *testing.T) {
	lc := NewListingCache(2, time.Minute)
	defer lc.Stop()

	lc.SetPopular(1, nil)
	time.Sleep(time.Millisecond)
	lc.SetPopular(2, nil)
	time.Sleep(time.Millisecond)
	_, ok := lc.GetPopular(1) // touch 1 so 2 is oldest
	require.True(t, ok)
	time.Sleep(time.Millisecond)
	lc.SetPopular(3, nil)

	require.Equal(t, 2, lc.Len())
	_, ok = lc.GetPopular(2)
	require.False(t, ok)
	_, ok = lc.GetPopular(1)
	require.True(t, ok)
}
