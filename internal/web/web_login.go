package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/views"
)

// safeRedirect only allows local paths
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}

// loginPage displays the login form
func (s *WebServer) loginPage(c *gin.Context) {
	// Check if user is already logged in
	if s.getWebSession(c) != nil {
		c.Redirect(http.StatusSeeOther, safeRedirect(c.Query("redirect")))
		return
	}

	meta := s.pageMeta(c, "Login")
	if c.Query("message") == "logged_out" {
		meta.Flash = "You have been logged out."
	}
	s.renderPage(c, http.StatusOK, meta, views.LoginPage(""))
}

// loginSubmit processes login form submission
func (s *WebServer) loginSubmit(c *gin.Context) {
	login := strings.TrimSpace(c.PostForm("login"))
	password := c.PostForm("password")
	redirectURL := safeRedirect(c.PostForm("redirect"))

	if login == "" || password == "" {
		s.renderLoginError(c, http.StatusBadRequest, "Username and password are required", login)
		return
	}

	ctx := c.Request.Context()
	user, err := s.Forum.Authenticate(ctx, login, password)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.renderServiceError(c, err)
			return
		}
		s.renderLoginError(c, status, err.Error(), login)
		return
	}

	// Successful login - create new session (this invalidates any existing session)
	sessionID, err := s.Sessions.CreateUserSession(ctx, user.ID, c.ClientIP())
	if err != nil {
		s.renderLoginError(c, http.StatusInternalServerError, "Failed to create session", login)
		return
	}

	// Set secure session cookie
	s.setSessionCookie(c, sessionID)
	flashes.put(sessionID, "Welcome back, "+user.Name(), true)

	// Redirect to destination
	c.Redirect(http.StatusSeeOther, redirectURL)
}

// logout handles user logout
func (s *WebServer) logout(c *gin.Context) {
	if session := s.getWebSession(c); session != nil {
		if err := s.Sessions.InvalidateUserSessionBySessionID(c.Request.Context(), session.SessionID); err != nil {
			s.renderError(c, http.StatusInternalServerError, "Logout failed", err.Error())
			return
		}
		flashes.drop(session.SessionID)
	}

	// Clear session cookie
	s.clearSessionCookie(c)

	c.Redirect(http.StatusSeeOther, "/login?message=logged_out")
}

// renderLoginError renders login page with error
func (s *WebServer) renderLoginError(c *gin.Context, status int, errorMsg, login string) {
	meta := s.pageMeta(c, "Login")
	meta.Flash, meta.IsError = errorMsg, true
	s.renderPage(c, status, meta, views.LoginPage(login))
}
