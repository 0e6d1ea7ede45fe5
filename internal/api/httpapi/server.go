// Package httpapi exposes the stream command surface over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/jsnphil/kentobot-api-sub000/internal/app/command"
	"github.com/jsnphil/kentobot-api-sub000/internal/infra/config"
)

// AdminTokenHeader is the header name for the admin authentication token.
const AdminTokenHeader = "X-Admin-Token"

// Server wires the command service into gin handlers.
type Server struct {
	service *command.Service
	cfg     *config.Config
}

// NewServer creates a Server.
func NewServer(service *command.Service, cfg *config.Config) *Server {
	return &Server{service: service, cfg: cfg}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(s.requireAdminToken())

	api.POST("/streams", s.startStream)
	api.GET("/streams/:day", s.getStream)
	api.GET("/streams/:day/queue", s.getQueue)

	api.POST("/streams/:day/songs", s.requestSong)
	api.DELETE("/streams/:day/songs/:songID", s.removeSong)
	api.POST("/streams/:day/songs/:songID/move", s.moveSong)
	api.POST("/streams/:day/songs/:songID/played", s.markPlayed)

	api.POST("/streams/:day/bumps", s.bumpSong)
	api.POST("/streams/:day/bumps/reset", s.resetBumpPools)

	api.POST("/streams/:day/shuffle/open", s.openShuffle)
	api.POST("/streams/:day/shuffle/close", s.closeShuffle)
	api.POST("/streams/:day/shuffle/entries", s.enterShuffle)
	api.POST("/streams/:day/shuffle/winner", s.selectShuffleWinner)

	api.POST("/events/platform", s.platformEvent)

	return router
}

// requireAdminToken rejects requests without the configured token.
func (s *Server) requireAdminToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(AdminTokenHeader)
		if token == "" || token != s.cfg.Admin.Token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		c.Next()
	}
}

// requestLogger logs each request at debug level.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zlog.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
