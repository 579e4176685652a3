package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/views"
)

// registerPage displays the registration form
func (s *WebServer) registerPage(c *gin.Context) {
	if s.getWebSession(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	s.renderPage(c, http.StatusOK, s.pageMeta(c, "Register"), views.RegisterPage("", ""))
}

// registerSubmit creates the account and logs the new user in
func (s *WebServer) registerSubmit(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	if password != c.PostForm("confirm_password") {
		s.renderRegisterError(c, http.StatusBadRequest, "Passwords do not match", username, email)
		return
	}

	ctx := c.Request.Context()
	user, err := s.Forum.Register(ctx, username, email, password)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.renderServiceError(c, err)
			return
		}
		s.renderRegisterError(c, status, err.Error(), username, email)
		return
	}

	sessionID, err := s.Sessions.CreateUserSession(ctx, user.ID, c.ClientIP())
	if err != nil {
		// account exists, let them log in by hand
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	s.setSessionCookie(c, sessionID)
	flashes.put(sessionID, "Welcome to "+s.Config.SiteName+", "+user.Username, true)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *WebServer) renderRegisterError(c *gin.Context, status int, errorMsg, username, email string) {
	meta := s.pageMeta(c, "Register")
	meta.Flash, meta.IsError = errorMsg, true
	s.renderPage(c, status, meta, views.RegisterPage(username, email))
}
