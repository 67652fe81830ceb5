package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studychat-server/internal/config"
	"github.com/vovakirdan/studychat-server/internal/core"
	"github.com/vovakirdan/studychat-server/internal/files"
	"github.com/vovakirdan/studychat-server/internal/store"
)

// Hub is the part of the broadcasting authority the transport needs.
type Hub interface {
	RegisterClient(c *core.Client) error
	UnregisterClient(c *core.Client)
	PublishAttachment(ctx context.Context, user, text string, file store.Attachment) (store.Message, error)
}

// NewServer builds an HTTP server with the chat routes.
// /ws bypasses gin so the upgrade can hijack the raw connection.
func NewServer(hub Hub, st store.MessageStore, storage *files.Storage, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	mux.Handle("/", NewRouter(hub, st, storage, cfg, logger))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires the gin engine for every route except /ws.
func NewRouter(hub Hub, st store.MessageStore, storage *files.Storage, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	r.GET("/health", healthHandler)

	history := NewHistoryHandler(st, logger)
	r.GET("/messages", history.List)

	upload := NewUploadHandler(hub, storage, cfg.MaxUploadBytes, logger)
	r.POST("/upload", upload.Upload)
	r.Static(storage.Prefix(), storage.Dir())

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{stdhttp.MethodGet, stdhttp.MethodPost}
	return c
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
