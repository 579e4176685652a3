package web

import (
	"context"
	"log"
	"time"

	"github.com/klkchan/klkchan/internal/database"
)

// SessionCleanupInterval is how often expired sessions are purged
const SessionCleanupInterval = 15 * time.Minute

// StartSessionCleanup starts a background goroutine to clean up expired sessions.
// It stops with Shutdown.
func (s *WebServer) StartSessionCleanup() {
	go func() {
		ticker := time.NewTicker(SessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.cleanupSessions()
			}
		}
	}()

	log.Println("[WEB]: Started session cleanup background task")
}

func (s *WebServer) cleanupSessions() {
	// a flash older than a whole session belongs to a session that is gone
	if n := flashes.purge(time.Now().Add(-database.SessionTimeout)); n > 0 {
		log.Printf("[WEB]: Session cleanup dropped %d stale flash messages", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := s.Sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		log.Printf("[WEB]: Error cleaning up expired sessions: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[WEB]: Session cleanup removed %d expired sessions", n)
	}
}
