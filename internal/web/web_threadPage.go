package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/forum"
	"github.com/klkchan/klkchan/internal/models"
	"github.com/klkchan/klkchan/internal/views"
)

// postPage shows a post and its comments
func (s *WebServer) postPage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		s.renderError(c, http.StatusNotFound, "Post not found", c.Param("id"))
		return
	}
	post, err := s.Forum.GetPost(c.Request.Context(), s.currentUser(c), id)
	if err != nil {
		s.renderServiceError(c, err)
		return
	}
	meta := s.pageMeta(c, post.Title)
	s.renderPage(c, http.StatusOK, meta, views.PostPage(post, meta.User))
}

// commentSubmit processes the reply form
func (s *WebServer) commentSubmit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		s.renderError(c, http.StatusNotFound, "Post not found", c.Param("id"))
		return
	}
	session := s.getWebSession(c)
	_, err := s.Forum.CreateComment(c.Request.Context(), session.User, forum.CommentInput{
		PostID: id,
		Body:   c.PostForm("body"),
	})
	s.redirectToPost(c, session, id, err, "Comment posted")
}

// voteSubmit processes the +1/-1 buttons of a post
func (s *WebServer) voteSubmit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		s.renderError(c, http.StatusNotFound, "Post not found", c.Param("id"))
		return
	}
	session := s.getWebSession(c)
	value, err := strconv.Atoi(c.PostForm("value"))
	if err != nil {
		session.SetError("value must be -1, 0, or 1")
		c.Redirect(http.StatusSeeOther, "/posts/"+strconv.FormatInt(id, 10))
		return
	}
	_, err = s.Forum.Vote(c.Request.Context(), session.User, models.TargetPost, id, value)
	s.redirectToPost(c, session, id, err, "")
}

func (s *WebServer) redirectToPost(c *gin.Context, session *SessionData, id int64, err error, success string) {
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.renderServiceError(c, err)
			return
		}
		session.SetError(err.Error())
	} else if success != "" {
		session.SetSuccess(success)
	}
	c.Redirect(http.StatusSeeOther, "/posts/"+strconv.FormatInt(id, 10))
}
