package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/forum"
	"github.com/klkchan/klkchan/internal/models"
)

// Boards

func (s *WebServer) apiListBoards(c *gin.Context) {
	page, err := s.Forum.ListBoards(c.Request.Context(), queryInt(c, "cursor", 0), int(queryInt(c, "limit", 0)))
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *WebServer) apiGetBoard(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	board, err := s.Forum.GetBoard(c.Request.Context(), id)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (s *WebServer) apiCreateBoard(c *gin.Context) {
	var in forum.BoardInput
	if !bindJSON(c, &in) {
		return
	}
	board, err := s.Forum.CreateBoard(c.Request.Context(), in)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, board)
}

func (s *WebServer) apiUpdateBoard(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	var patch forum.BoardPatch
	if !bindJSON(c, &patch) {
		return
	}
	board, err := s.Forum.UpdateBoard(c.Request.Context(), id, patch)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (s *WebServer) apiDeleteBoard(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	if err := s.Forum.DeleteBoard(c.Request.Context(), id); err != nil {
		apiError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Posts

func (s *WebServer) apiListPosts(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	page, err := s.Forum.ListPosts(c.Request.Context(), s.currentUser(c), id, queryInt(c, "cursor", 0), int(queryInt(c, "limit", 0)))
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *WebServer) apiGetPost(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	post, err := s.Forum.GetPost(c.Request.Context(), s.currentUser(c), id)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *WebServer) apiCreatePost(c *gin.Context) {
	var in forum.PostInput
	if !bindJSON(c, &in) {
		return
	}
	post, err := s.Forum.CreatePost(c.Request.Context(), s.currentUser(c), in)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *WebServer) apiUpdatePost(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	var patch forum.PostPatch
	if !bindJSON(c, &patch) {
		return
	}
	post, err := s.Forum.UpdatePost(c.Request.Context(), s.currentUser(c), id, patch)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *WebServer) apiDeletePost(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	if err := s.Forum.DeletePost(c.Request.Context(), s.currentUser(c), id); err != nil {
		apiError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Comments

func (s *WebServer) apiListComments(c *gin.Context) {
	postID := queryInt(c, "post_id", 0)
	if postID < 1 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "post_id is required"})
		return
	}
	page, err := s.Forum.ListComments(c.Request.Context(), s.currentUser(c), postID, queryInt(c, "cursor", 0), int(queryInt(c, "limit", 0)))
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *WebServer) apiCreateComment(c *gin.Context) {
	var in forum.CommentInput
	if !bindJSON(c, &in) {
		return
	}
	comment, err := s.Forum.CreateComment(c.Request.Context(), s.currentUser(c), in)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *WebServer) apiDeleteComment(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	if err := s.Forum.DeleteComment(c.Request.Context(), s.currentUser(c), id); err != nil {
		apiError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Votes and popular threads

type voteRequest struct {
	TargetType string `json:"target_type" binding:"required"`
	TargetID   int64  `json:"target_id" binding:"required"`
	Value      *int   `json:"value" binding:"required"`
}

func (s *WebServer) apiVote(c *gin.Context) {
	var req voteRequest
	if !bindJSON(c, &req) {
		return
	}
	summary, err := s.Forum.Vote(c.Request.Context(), s.currentUser(c), req.TargetType, req.TargetID, *req.Value)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *WebServer) apiVoteSummary(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	var userID int64
	if u := s.currentUser(c); u != nil {
		userID = u.ID
	}
	summary, err := s.Forum.VoteSummary(c.Request.Context(), c.Param("type"), id, userID)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *WebServer) apiPopularThreads(c *gin.Context) {
	posts, err := s.Forum.PopularThreads(c.Request.Context(), int(queryInt(c, "limit", 0)))
	if err != nil {
		apiError(c, err)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"items": posts})
}

// Moderation

type reportRequest struct {
	TargetType string `json:"target_type" binding:"required"`
	TargetID   int64  `json:"target_id" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

func (s *WebServer) apiCreateReport(c *gin.Context) {
	var req reportRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := s.Forum.Report(c.Request.Context(), s.currentUser(c), req.TargetType, req.TargetID, req.Reason)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true, "report": report})
}

func (s *WebServer) listReports(c *gin.Context, status string) {
	reports, err := s.Forum.Queue(c.Request.Context(), status)
	if err != nil {
		apiError(c, err)
		return
	}
	if reports == nil {
		reports = []*models.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"items": reports})
}

// apiListReports lists reports, optionally filtered with ?status=
func (s *WebServer) apiListReports(c *gin.Context) {
	s.listReports(c, c.Query("status"))
}

// apiQueue lists the pending reports
func (s *WebServer) apiQueue(c *gin.Context) {
	s.listReports(c, "pending")
}

func (s *WebServer) apiApplyAction(c *gin.Context) {
	var req forum.ActionRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.Forum.ApplyAction(c.Request.Context(), s.currentUser(c), req)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *WebServer) apiActionLog(c *gin.Context) {
	entries, err := s.Forum.ActionLog(c.Request.Context(), int(queryInt(c, "limit", 0)))
	if err != nil {
		apiError(c, err)
		return
	}
	if entries == nil {
		entries = []*models.ModerationAction{}
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}
