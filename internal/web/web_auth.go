package web

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/database"
	"github.com/klkchan/klkchan/internal/models"
)

const (
	sessionCookie = "session_id"
	ctxUser       = "user"
	ctxClaims     = "claims"
)

// flashStore keeps one pending message per session id
type flashStore struct {
	mu   sync.Mutex
	byID map[string]flash
}

type flash struct {
	ok  bool
	msg string
	at  time.Time
}

var flashes = &flashStore{byID: make(map[string]flash)}

func (f *flashStore) put(sessionID, msg string, ok bool) {
	f.mu.Lock()
	f.byID[sessionID] = flash{ok: ok, msg: msg, at: time.Now()}
	f.mu.Unlock()
}

// take returns the pending message split by kind and forgets it
func (f *flashStore) take(sessionID string) (success, errorMsg string) {
	f.mu.Lock()
	fl, found := f.byID[sessionID]
	delete(f.byID, sessionID)
	f.mu.Unlock()
	switch {
	case !found:
	case fl.ok:
		success = fl.msg
	default:
		errorMsg = fl.msg
	}
	return
}

func (f *flashStore) drop(sessionID string) {
	f.mu.Lock()
	delete(f.byID, sessionID)
	f.mu.Unlock()
}

// purge forgets messages set before cutoff and returns how many went
func (f *flashStore) purge(cutoff time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, fl := range f.byID {
		if fl.at.Before(cutoff) {
			delete(f.byID, id)
			n++
		}
	}
	return n
}

// SessionData represents session information with user data
type SessionData struct {
	SessionID string
	UserID    int64
	User      *models.User
	ExpiresAt time.Time
}

// SetError sets a temporary error message in session data
func (s *SessionData) SetError(msg string) {
	flashes.put(s.SessionID, msg, false)
}

// SetSuccess sets a temporary success message in session data
func (s *SessionData) SetSuccess(msg string) {
	flashes.put(s.SessionID, msg, true)
}

// WebAuthRequired middleware for web authentication (different from API auth)
func (s *WebServer) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := s.getWebSession(c)
		if session == nil {
			c.Redirect(http.StatusSeeOther, "/login?redirect="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
			return
		}

		// Store user in context for handlers
		c.Set(ctxUser, session.User)
		c.Next()
	}
}

// getWebSession retrieves session from cookie and returns full session data
func (s *WebServer) getWebSession(c *gin.Context) *SessionData {
	if v, ok := c.Get("session"); ok {
		return v.(*SessionData)
	}
	sessionID, err := c.Cookie(sessionCookie)
	if err != nil || sessionID == "" {
		return nil
	}

	user, err := s.Sessions.ValidateUserSession(c.Request.Context(), sessionID)
	if err != nil || user.Banned {
		return nil
	}

	session := &SessionData{
		SessionID: sessionID,
		UserID:    user.ID,
		User:      user,
		ExpiresAt: time.Now().Add(database.SessionTimeout),
	}
	if user.SessionExpiresAt != nil {
		session.ExpiresAt = *user.SessionExpiresAt
	}
	c.Set("session", session)
	return session
}

// currentUser returns the authenticated user of the request, if any
func (s *WebServer) currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxUser); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	if session := s.getWebSession(c); session != nil {
		return session.User
	}
	return nil
}

func isHTTPS(c *gin.Context) bool {
	return c.Request != nil && (c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https"))
}

// Helper function to set session cookie
func (s *WebServer) setSessionCookie(c *gin.Context, sessionID string) {
	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(c),
		SameSite: http.SameSiteLaxMode, // Works well with reverse proxies
		MaxAge:   int(database.SessionTimeout.Seconds()),
	}

	http.SetCookie(c.Writer, cookie)
}

// Helper function to clear session cookie
func (s *WebServer) clearSessionCookie(c *gin.Context) {
	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(c),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete cookie
	}

	http.SetCookie(c.Writer, cookie)
}
