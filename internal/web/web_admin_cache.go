package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// adminCacheStats reports the listing cache counters
func (s *WebServer) adminCacheStats(c *gin.Context) {
	if s.Cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "No caches are initialized"})
		return
	}
	c.JSON(http.StatusOK, s.Cache.GetStats())
}

// adminClearCache drops every cached board list and popular list
func (s *WebServer) adminClearCache(c *gin.Context) {
	if s.Cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "No caches are initialized"})
		return
	}
	entries := s.Cache.Len()
	s.Cache.Clear()
	log.Printf("[WEB]: listing cache cleared by %s (%d entries)", s.currentUser(c).Username, entries)
	c.JSON(http.StatusOK, gin.H{"success": true, "entries_cleared": entries})
}
