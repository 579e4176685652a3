package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/views"
)

// homePage renders the board list followed by the popular threads
func (s *WebServer) homePage(c *gin.Context) {
	home := views.HomePage(
		views.BoardList{Source: s.Forum, Limit: config.DefaultPageLimit},
		views.PopularThreads{Source: s.Forum, Limit: config.DefaultPopularLimit},
	)
	s.renderPage(c, http.StatusOK, s.pageMeta(c, ""), home)
}
