package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/models"
)

// adminListUsers lists every account
func (s *WebServer) adminListUsers(c *gin.Context) {
	users, err := s.Forum.ListUsers(c.Request.Context())
	if err != nil {
		apiError(c, err)
		return
	}
	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, newUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// adminGrantRole gives a user the mod or admin role
func (s *WebServer) adminGrantRole(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}
	s.changeRole(c, id, func() error { return s.Forum.GrantRole(c.Request.Context(), id, req.Role) })
}

// adminRevokeRole removes mod or admin from a user
func (s *WebServer) adminRevokeRole(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	if id == s.currentUser(c).ID && c.Param("role") == models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "You cannot revoke your own admin role"})
		return
	}
	s.changeRole(c, id, func() error { return s.Forum.RevokeRole(c.Request.Context(), id, c.Param("role")) })
}

// adminDeleteUser removes an account with its content
func (s *WebServer) adminDeleteUser(c *gin.Context) {
	id, ok := apiParamID(c, "id")
	if !ok {
		return
	}
	if id == s.currentUser(c).ID {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Use DELETE /api/v1/users/me to delete your own account"})
		return
	}
	if err := s.Forum.DeleteUser(c.Request.Context(), s.currentUser(c), id); err != nil {
		apiError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *WebServer) changeRole(c *gin.Context, id int64, change func() error) {
	if err := change(); err != nil {
		apiError(c, err)
		return
	}
	u, err := s.Forum.GetUser(c.Request.Context(), id)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(u))
}
