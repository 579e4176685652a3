package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/auth"
	"github.com/klkchan/klkchan/internal/forum"
	"github.com/klkchan/klkchan/internal/models"
)

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}

// APIUser loads the caller from a bearer access token or the session cookie.
// A bad token is rejected; no credentials at all leaves the request anonymous.
func (s *WebServer) APIUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if session := s.getWebSession(c); session != nil {
				c.Set(ctxUser, session.User)
			}
			c.Next()
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			unauthorized(c, "Invalid authorization header")
			return
		}
		claims, err := s.Tokens.Parse(token, auth.TypeAccess)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				unauthorized(c, "Token expired")
				return
			}
			unauthorized(c, "Could not validate credentials")
			return
		}
		uid, err := claims.UserID()
		if err != nil {
			unauthorized(c, "Could not validate credentials")
			return
		}
		user, err := s.Forum.GetUser(c.Request.Context(), uid)
		if err != nil {
			unauthorized(c, "User not found")
			return
		}
		if user.Banned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "account is banned"})
			return
		}

		c.Set(ctxUser, user)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// APIAuthRequired rejects anonymous API requests
func (s *WebServer) APIAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.currentUser(c) == nil {
			unauthorized(c, "Not authenticated")
			return
		}
		c.Next()
	}
}

// RoleRequired lets through users holding any of roles
func (s *WebServer) RoleRequired(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.currentUser(c).HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// userResponse is the public view of an account
type userResponse struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Roles       []string `json:"roles"`
	Posts       []int64  `json:"posts"`
}

func newUserResponse(u *models.User) userResponse {
	posts := u.PostIDs
	if posts == nil {
		posts = []int64{}
	}
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		Roles:       u.Roles,
		Posts:       posts,
	}
}

func (s *WebServer) apiRegister(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := s.Forum.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(u))
}

// loginRequest accepts the OAuth2 password form or a JSON body
type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

func (s *WebServer) apiLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	u, err := s.Forum.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apiError(c, err)
		return
	}
	s.issueTokens(c, u)
}

func (s *WebServer) issueTokens(c *gin.Context, u *models.User) {
	pair, err := s.Tokens.IssuePair(u.ID, u.Username, u.Roles)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// apiRefresh trades a refresh token for a new pair; the old refresh token is revoked
func (s *WebServer) apiRefresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	claims, err := s.Tokens.Parse(req.RefreshToken, auth.TypeRefresh)
	if err != nil {
		unauthorized(c, "Invalid refresh token")
		return
	}
	uid, err := claims.UserID()
	if err != nil {
		unauthorized(c, "Invalid refresh token")
		return
	}
	u, err := s.Forum.GetUser(c.Request.Context(), uid)
	if err != nil {
		unauthorized(c, "User not found")
		return
	}
	if u.Banned {
		c.JSON(http.StatusForbidden, gin.H{"detail": "account is banned"})
		return
	}
	s.Tokens.Revoke(claims)
	s.issueTokens(c, u)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// apiLogout revokes the presented access token and, if given, the refresh token
func (s *WebServer) apiLogout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)

	user := s.currentUser(c)
	if v, ok := c.Get(ctxClaims); ok {
		s.Tokens.Revoke(v.(*auth.Claims))
	}
	if req.RefreshToken != "" {
		claims, err := s.Tokens.Parse(req.RefreshToken, auth.TypeRefresh)
		if err != nil {
			unauthorized(c, "Invalid refresh token")
			return
		}
		if uid, err := claims.UserID(); err != nil || uid != user.ID {
			c.JSON(http.StatusForbidden, gin.H{"detail": "Refresh token belongs to another user"})
			return
		}
		s.Tokens.Revoke(claims)
	}
	c.Status(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func (s *WebServer) apiChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := s.Forum.ChangePassword(c.Request.Context(), s.currentUser(c).ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		apiError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *WebServer) apiMe(c *gin.Context) {
	u, err := s.Forum.GetUser(c.Request.Context(), s.currentUser(c).ID)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(u))
}

func (s *WebServer) apiUpdateMe(c *gin.Context) {
	var patch forum.ProfilePatch
	if !bindJSON(c, &patch) {
		return
	}
	user := s.currentUser(c)
	u, err := s.Forum.UpdateProfile(c.Request.Context(), user, user.ID, patch)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(u))
}

// apiDeleteMe deletes the caller's account and drops its credentials
func (s *WebServer) apiDeleteMe(c *gin.Context) {
	user := s.currentUser(c)
	if err := s.Forum.DeleteUser(c.Request.Context(), user, user.ID); err != nil {
		apiError(c, err)
		return
	}
	if v, ok := c.Get(ctxClaims); ok {
		s.Tokens.Revoke(v.(*auth.Claims))
	}
	if session := s.getWebSession(c); session != nil {
		flashes.drop(session.SessionID)
		s.clearSessionCookie(c)
	}
	c.Status(http.StatusNoContent)
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, forum.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, forum.ErrInvalid), errors.Is(err, forum.ErrBannedWords), errors.Is(err, forum.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, forum.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, forum.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, forum.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, forum.ErrLockedOut):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
