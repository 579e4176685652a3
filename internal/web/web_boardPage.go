package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/forum"
	"github.com/klkchan/klkchan/internal/views"
)

// boardsPage lists all boards, one cursor page at a time
func (s *WebServer) boardsPage(c *gin.Context) {
	list := views.BoardList{
		Source: s.Forum,
		Cursor: queryInt(c, "cursor", 0),
		Limit:  config.DefaultPageLimit,
	}
	s.renderPage(c, http.StatusOK, s.pageMeta(c, "Boards"), list)
}

// boardPage shows the posts of one board
func (s *WebServer) boardPage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		s.renderError(c, http.StatusNotFound, "Board not found", c.Param("id"))
		return
	}
	ctx := c.Request.Context()
	board, err := s.Forum.GetBoard(ctx, id)
	if err != nil {
		s.renderServiceError(c, err)
		return
	}
	posts, err := s.Forum.ListPosts(ctx, s.currentUser(c), id, queryInt(c, "cursor", 0), config.DefaultPageLimit)
	if err != nil {
		s.renderServiceError(c, err)
		return
	}
	meta := s.pageMeta(c, board.Name)
	s.renderPage(c, http.StatusOK, meta, views.BoardPage(board, posts, meta.User))
}

// createPostSubmit processes the new post form of a board
func (s *WebServer) createPostSubmit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		s.renderError(c, http.StatusNotFound, "Board not found", c.Param("id"))
		return
	}
	session := s.getWebSession(c)
	back := "/boards/" + strconv.FormatInt(id, 10)

	post, err := s.Forum.CreatePost(c.Request.Context(), session.User, forum.PostInput{
		BoardID: id,
		Title:   strings.TrimSpace(c.PostForm("title")),
		Body:    c.PostForm("body"),
	})
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.renderServiceError(c, err)
			return
		}
		session.SetError(err.Error())
		c.Redirect(http.StatusSeeOther, back)
		return
	}
	session.SetSuccess("Post created")
	c.Redirect(http.StatusSeeOther, "/posts/"+strconv.FormatInt(post.ID, 10))
}
