// Package web provides the HTTP server and web interface for klkchan
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/klkchan/klkchan/internal/auth"
	"github.com/klkchan/klkchan/internal/cache"
	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/forum"
	"github.com/klkchan/klkchan/internal/models"
)

// SessionStore keeps the web login sessions, implemented by *database.Database
type SessionStore interface {
	CreateUserSession(ctx context.Context, userID int64, remoteIP string) (string, error)
	ValidateUserSession(ctx context.Context, sessionID string) (*models.User, error)
	InvalidateUserSessionBySessionID(ctx context.Context, sessionID string) error
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// WebServer represents the web server
type WebServer struct {
	Forum     *forum.Service
	Sessions  SessionStore
	Tokens    *auth.Issuer
	Cache     *cache.ListingCache // may be nil
	Router    *gin.Engine
	Config    *config.WebConfig
	StartTime time.Time // Track server start time for uptime calculations

	robotsTxtPath string // Path to robots.txt file if it exists
	httpServer    *http.Server
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewServer creates a new web server instance
func NewServer(svc *forum.Service, sessions SessionStore, tokens *auth.Issuer, lc *cache.ListingCache, webconfig *config.WebConfig) *WebServer {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Configure Gin to trust reverse proxy headers
	// Set trusted proxies for common reverse proxy setups (nginx, etc.)
	router.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		IsDevelopment:      webconfig.Debug,
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}

	server := &WebServer{
		Forum:    svc,
		Sessions: sessions,
		Tokens:   tokens,
		Cache:    lc,
		Router:   router,
		Config:   webconfig,
		stopChan: make(chan struct{}),
	}

	router.Use(server.ApacheLogFormat(), gin.Recovery())
	router.Use(secure.New(secureConfig))
	// Add reverse proxy middleware for handling X-Forwarded headers
	router.Use(server.ReverseProxyMiddleware())

	// Check if robots.txt file exists
	robotsPath := "./web/robots.txt"
	if _, err := os.Stat(robotsPath); err == nil {
		server.robotsTxtPath = robotsPath
		log.Printf("[WEB]: Found robots.txt file at: %s", robotsPath)
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	s.Router.GET("/static/*filepath", EmbeddedStaticHandler("/static"))
	s.Router.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	s.Router.GET("/robots.txt", func(c *gin.Context) {
		if s.robotsTxtPath != "" {
			c.File(s.robotsTxtPath)
		} else {
			c.String(http.StatusOK, "User-agent: *\nDisallow:\n")
		}
	})
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// HTML pages
	s.Router.GET("/", s.homePage)
	s.Router.GET("/boards", s.boardsPage)
	s.Router.GET("/boards/:id", s.boardPage)
	s.Router.GET("/posts/:id", s.postPage)
	s.Router.POST("/boards/:id/posts", s.WebAuthRequired(), s.createPostSubmit)
	s.Router.POST("/posts/:id/comments", s.WebAuthRequired(), s.commentSubmit)
	s.Router.POST("/posts/:id/vote", s.WebAuthRequired(), s.voteSubmit)

	// Authentication routes
	s.Router.GET("/login", s.loginPage)
	s.Router.POST("/login", s.loginSubmit)
	s.Router.GET("/register", s.registerPage)
	s.Router.POST("/register", s.registerSubmit)
	s.Router.GET("/logout", s.logout)

	// JSON API, bearer token or session cookie
	api := s.Router.Group("/api/v1")
	api.Use(s.APIUser())
	{
		api.POST("/auth/register", s.apiRegister)
		api.POST("/auth/login", s.apiLogin)
		api.POST("/auth/refresh", s.apiRefresh)

		api.GET("/boards", s.apiListBoards)
		api.GET("/boards/:id", s.apiGetBoard)
		api.GET("/boards/:id/posts", s.apiListPosts)
		api.GET("/posts/:id", s.apiGetPost)
		api.GET("/comments", s.apiListComments)
		api.GET("/interactions/votes/:type/:id", s.apiVoteSummary)
		api.GET("/threads/popular", s.apiPopularThreads)
	}

	authed := api.Group("", s.APIAuthRequired())
	{
		authed.POST("/auth/logout", s.apiLogout)
		authed.PATCH("/auth/change-password", s.apiChangePassword)
		authed.GET("/users/me", s.apiMe)
		authed.PATCH("/users/me", s.apiUpdateMe)
		authed.DELETE("/users/me", s.apiDeleteMe)

		authed.POST("/posts", s.apiCreatePost)
		authed.PUT("/posts/:id", s.apiUpdatePost)
		authed.DELETE("/posts/:id", s.apiDeletePost)
		authed.POST("/comments", s.apiCreateComment)
		authed.DELETE("/comments/:id", s.apiDeleteComment)
		authed.POST("/interactions/votes", s.apiVote)
		authed.POST("/moderation/reports", s.apiCreateReport)
	}

	mod := authed.Group("", s.RoleRequired(models.RoleMod, models.RoleAdmin))
	{
		mod.POST("/boards", s.apiCreateBoard)
		mod.PUT("/boards/:id", s.apiUpdateBoard)
		mod.DELETE("/boards/:id", s.apiDeleteBoard)
		mod.GET("/moderation/reports", s.apiListReports)
		mod.GET("/moderation/queue", s.apiQueue)
		mod.POST("/moderation/actions", s.apiApplyAction)
		mod.GET("/moderation/actions", s.apiActionLog)
	}

	admin := authed.Group("/admin", s.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/cache", s.adminCacheStats)
		admin.POST("/cache/clear", s.adminClearCache)
		admin.GET("/users", s.adminListUsers)
		admin.POST("/users/:id/roles", s.adminGrantRole)
		admin.DELETE("/users/:id/roles/:role", s.adminRevokeRole)
		admin.DELETE("/users/:id", s.adminDeleteUser)
	}
}

// Start starts the web server with SSL support if configured. It blocks until Shutdown.
func (s *WebServer) Start() error {
	addr := ":" + strconv.Itoa(s.Config.ListenPort)
	s.StartTime = time.Now() // Set the start time for uptime calculations
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var err error
	if s.Config.SSL {
		if s.Config.CertFile == "" || s.Config.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Printf("[WEB]: Starting HTTPS server on %s", addr)
		err = s.httpServer.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	} else {
		log.Printf("[WEB]: Starting HTTP server on %s", addr)
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops background tasks and drains open connections
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// ReverseProxyMiddleware handles X-Forwarded headers when running behind a reverse proxy
func (s *WebServer) ReverseProxyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Handle X-Forwarded-Proto to detect if the original request was HTTPS
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
			c.Request.URL.Scheme = "https"
		}

		// Handle X-Forwarded-For to get the real client IP
		if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			// Take the first IP from the list (original client)
			ips := strings.Split(xff, ",")
			if len(ips) > 0 {
				clientIP := strings.TrimSpace(ips[0])
				c.Request.RemoteAddr = clientIP + ":0"
			}
		}

		// Handle X-Real-IP as an alternative
		if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
			c.Request.RemoteAddr = realIP + ":0"
		}

		// Handle X-Forwarded-Host to get the original host
		if host := c.GetHeader("X-Forwarded-Host"); host != "" {
			c.Request.Host = host
		}

		c.Next()
	}
}

// ApacheLogFormat logs requests in the combined log format
func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s"`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
		)
	})
}
