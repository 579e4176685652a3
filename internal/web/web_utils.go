package web

import (
	"bytes"
	"log"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/views"
)

// pageMeta creates the shell data used by all page handlers, consuming any flash message
func (s *WebServer) pageMeta(c *gin.Context, title string) views.PageMeta {
	meta := views.PageMeta{
		Title:    title,
		SiteName: s.Config.SiteName,
		Version:  config.AppVersion,
	}
	if session := s.getWebSession(c); session != nil {
		meta.User = session.User
		success, errMsg := flashes.take(session.SessionID)
		if errMsg != "" {
			meta.Flash, meta.IsError = errMsg, true
		} else {
			meta.Flash = success
		}
	}
	return meta
}

// renderPage renders content inside the layout. The page is buffered so a failing
// component turns into an error page instead of a truncated document.
func (s *WebServer) renderPage(c *gin.Context, status int, meta views.PageMeta, content templ.Component) {
	var buf bytes.Buffer
	if err := views.Layout(meta, content).Render(c.Request.Context(), &buf); err != nil {
		meta.Title = "Error"
		s.renderErrorPage(c, meta, http.StatusInternalServerError, "Page could not be rendered", err.Error())
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// renderError renders an error page
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	s.renderErrorPage(c, s.pageMeta(c, "Error"), statusCode, message, errstring)
}

// renderErrorPage renders an error page with an already built meta, keeping its flash
func (s *WebServer) renderErrorPage(c *gin.Context, meta views.PageMeta, statusCode int, message string, errstring string) {
	log.Printf("[WEB]: Error %d: %s - %s", statusCode, message, errstring)

	var buf bytes.Buffer
	if err := views.Layout(meta, views.ErrorPage(statusCode, message)).Render(c.Request.Context(), &buf); err != nil {
		log.Printf("[WEB]: Error rendering error page: %v", err)
		c.String(statusCode, "Error: %s", message)
		return
	}
	c.Data(statusCode, "text/html; charset=utf-8", buf.Bytes())
}

// renderServiceError renders a page for a forum error with the mapped status
func (s *WebServer) renderServiceError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.renderError(c, status, "Internal server error", err.Error())
		return
	}
	s.renderError(c, status, err.Error(), "")
}
