package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/noknowgram/server/internal/auth"
	"github.com/noknowgram/server/internal/config"
	"github.com/noknowgram/server/internal/core"
	"github.com/noknowgram/server/internal/upload"
)

// Deps bundles everything the HTTP layer serves.
type Deps struct {
	Hub      *core.Hub
	Presence *core.Presence
	Rooms    *core.Rooms
	MsgLog   *core.MessageLog
	Auth     *auth.Service
	Uploads  *upload.Store
}

// NewServer builds the HTTP server: REST API, uploads, read models, and the
// WebSocket endpoint.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	api := NewAPIHandlers(deps.Auth, logger)
	reads := NewReadHandlers(deps.MsgLog, deps.Rooms, deps.Presence)

	r.POST("/api/register", api.Register)
	r.POST("/api/login", api.Login)
	r.GET("/api/messages/:room", reads.Messages)
	r.GET("/api/groups", reads.Groups)
	r.GET("/api/users", reads.OnlineUsers)

	if deps.Uploads != nil {
		uploads := NewUploadHandlers(deps.Uploads, logger)
		r.MaxMultipartMemory = cfg.MaxUploadBytes
		r.POST("/api/upload", uploads.Upload)
		r.Static("/uploads", deps.Uploads.Dir())
	}

	ws := NewWSHandler(deps.Hub, deps.Auth, logger)
	r.GET("/ws", gin.WrapH(ws))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
