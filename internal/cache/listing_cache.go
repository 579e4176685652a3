// Package cache holds in-memory caches for hot forum listings.
package cache

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/klkchan/klkchan/internal/models"
)

// CachedListing holds one cached board page or popular-threads result
type CachedListing struct {
	Boards     []*models.Board
	Posts      []*models.Post
	NextCursor int64
	CreatedAt  time.Time
	LastUsed   time.Time
	Size       int64 // Estimated memory size
}

// ListingCache caches the board index pages and the popular threads list.
// Every write to boards, posts, comments or votes clears it.
type ListingCache struct {
	cache       map[string]*CachedListing
	mutex       sync.RWMutex
	maxEntries  int           // Maximum number of cached results
	maxAge      time.Duration // Maximum age of entries
	cleanupTick time.Duration // How often to run cleanup
	stopCleanup chan struct{}
	stopOnce    sync.Once
	cachedSize  int64        // Size of the cache in bytes
	countermux  sync.RWMutex // Mutex for cachedSize and counters
	hits        int64        // Cache hit counter
	misses      int64        // Cache miss counter
}

// NewListingCache creates a new listing cache with specified limits
func NewListingCache(maxEntries int, maxAge time.Duration) *ListingCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	lc := &ListingCache{
		cache:       make(map[string]*CachedListing),
		maxEntries:  maxEntries,
		maxAge:      maxAge,
		cleanupTick: time.Minute * 5, // Clean up every 5 minutes
		stopCleanup: make(chan struct{}),
	}

	go lc.cleanup()

	return lc
}

func boardsKey(cursor int64, limit int) string {
	return fmt.Sprintf("boards_c%d_l%d", cursor, limit)
}

func popularKey(limit int) string {
	return fmt.Sprintf("popular_l%d", limit)
}

// GetBoards retrieves a cached board page
func (lc *ListingCache) GetBoards(cursor int64, limit int) ([]*models.Board, int64, bool) {
	entry, ok := lc.get(boardsKey(cursor, limit))
	if !ok {
		return nil, 0, false
	}
	return entry.Boards, entry.NextCursor, true
}

// SetBoards stores a board page
func (lc *ListingCache) SetBoards(cursor int64, limit int, boards []*models.Board, nextCursor int64) {
	size := int64(100)
	for _, b := range boards {
		if b != nil {
			size += 120 + int64(len(b.Name)+len(b.Description))
		}
	}
	lc.set(boardsKey(cursor, limit), &CachedListing{Boards: boards, NextCursor: nextCursor, Size: size})
}

// GetPopular retrieves the cached popular threads for limit
func (lc *ListingCache) GetPopular(limit int) ([]*models.Post, bool) {
	entry, ok := lc.get(popularKey(limit))
	if !ok {
		return nil, false
	}
	return entry.Posts, true
}

// SetPopular stores the popular threads for limit
func (lc *ListingCache) SetPopular(limit int, posts []*models.Post) {
	size := int64(100)
	for _, p := range posts {
		if p != nil {
			size += 200 + int64(len(p.Title)+len(p.Slug)+len(p.Body)+len(p.BoardName)+len(p.Author))
		}
	}
	lc.set(popularKey(limit), &CachedListing{Posts: posts, Size: size})
}

func (lc *ListingCache) get(key string) (*CachedListing, bool) {
	lc.mutex.RLock()
	entry, exists := lc.cache[key]
	lc.mutex.RUnlock()

	if !exists || time.Since(entry.CreatedAt) > lc.maxAge {
		if exists {
			lc.remove(key)
		}
		lc.countermux.Lock()
		lc.misses++
		lc.countermux.Unlock()
		return nil, false
	}

	lc.countermux.Lock()
	lc.hits++
	lc.countermux.Unlock()

	// Update last used time
	lc.mutex.Lock()
	entry.LastUsed = time.Now()
	lc.mutex.Unlock()

	return entry, true
}

func (lc *ListingCache) set(key string, entry *CachedListing) {
	entry.CreatedAt = time.Now()
	entry.LastUsed = entry.CreatedAt

	lc.mutex.Lock()
	defer lc.mutex.Unlock()

	// Remove old entry if it exists
	if oldEntry, exists := lc.cache[key]; exists {
		lc.updateCachedSize(-oldEntry.Size)
	}

	lc.cache[key] = entry
	lc.updateCachedSize(entry.Size)

	lc.evictIfNeeded()
}

func (lc *ListingCache) remove(key string) {
	lc.mutex.Lock()
	defer lc.mutex.Unlock()

	if entry, exists := lc.cache[key]; exists {
		lc.updateCachedSize(-entry.Size)
		delete(lc.cache, key)
	}
}

// Clear removes all cache entries
func (lc *ListingCache) Clear() {
	lc.mutex.Lock()
	defer lc.mutex.Unlock()

	lc.cache = make(map[string]*CachedListing)
	lc.countermux.Lock()
	lc.cachedSize = 0
	lc.countermux.Unlock()
}

// Len returns the number of cached entries
func (lc *ListingCache) Len() int {
	lc.mutex.RLock()
	defer lc.mutex.RUnlock()
	return len(lc.cache)
}

// GetStats returns cache statistics
func (lc *ListingCache) GetStats() map[string]interface{} {
	lc.mutex.RLock()
	entryCount := len(lc.cache)
	lc.mutex.RUnlock()

	lc.countermux.RLock()
	hits := lc.hits
	misses := lc.misses
	lc.countermux.RUnlock()

	totalRequests := hits + misses
	hitRate := 0.0
	if totalRequests > 0 {
		hitRate = float64(hits) / float64(totalRequests) * 100
	}

	// Calculate utilization percentage
	utilizationPercent := 0.0
	if lc.maxEntries > 0 {
		utilizationPercent = float64(entryCount) / float64(lc.maxEntries) * 100
	}

	return map[string]interface{}{
		"entries":             entryCount,
		"max_entries":         lc.maxEntries,
		"size_bytes":          lc.GetCachedSize(),
		"size_human":          lc.GetCachedSizeHuman(),
		"max_age":             lc.maxAge.String(),
		"hits":                hits,
		"misses":              misses,
		"hit_rate":            hitRate,
		"utilization_percent": utilizationPercent,
	}
}

// GetCachedSize returns the current cache size in bytes
func (lc *ListingCache) GetCachedSize() int64 {
	lc.countermux.RLock()
	defer lc.countermux.RUnlock()
	return lc.cachedSize
}

// GetCachedSizeHuman returns human-readable cache size
func (lc *ListingCache) GetCachedSizeHuman() string {
	size := lc.GetCachedSize()
	if size < 1024 {
		return fmt.Sprintf("%d bytes", size)
	}
	if size < 1024*1024 {
		return fmt.Sprintf("%.2f KB", float64(size)/1024.0)
	}
	return fmt.Sprintf("%.2f MB", float64(size)/(1024.0*1024.0))
}

// updateCachedSize updates the cached size counter (thread-safe)
func (lc *ListingCache) updateCachedSize(delta int64) {
	lc.countermux.Lock()
	lc.cachedSize += delta
	if lc.cachedSize < 0 {
		lc.cachedSize = 0
	}
	lc.countermux.Unlock()
}

// evictIfNeeded removes the least recently used entry if cache is full (must be called with lock held)
func (lc *ListingCache) evictIfNeeded() {
	for len(lc.cache) > lc.maxEntries {
		var oldestKey string
		var oldestTime time.Time

		for key, entry := range lc.cache {
			if oldestKey == "" || entry.LastUsed.Before(oldestTime) {
				oldestKey = key
				oldestTime = entry.LastUsed
			}
		}

		if entry := lc.cache[oldestKey]; entry != nil {
			lc.updateCachedSize(-entry.Size)
		}
		delete(lc.cache, oldestKey)
	}
}

// cleanup runs periodically to remove expired entries
func (lc *ListingCache) cleanup() {
	ticker := time.NewTicker(lc.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lc.cleanupExpired()
		case <-lc.stopCleanup:
			return
		}
	}
}

// cleanupExpired removes expired cache entries
func (lc *ListingCache) cleanupExpired() {
	lc.mutex.Lock()
	defer lc.mutex.Unlock()

	now := time.Now()
	expired := 0
	for key, entry := range lc.cache {
		if now.Sub(entry.CreatedAt) > lc.maxAge {
			lc.updateCachedSize(-entry.Size)
			delete(lc.cache, key)
			expired++
		}
	}

	if expired > 0 {
		log.Printf("[CACHE] ListingCache: Cleaned up %d expired entries", expired)
	}
}

// Stop gracefully shuts down the cache
func (lc *ListingCache) Stop() {
	lc.stopOnce.Do(func() { close(lc.stopCleanup) })
}
