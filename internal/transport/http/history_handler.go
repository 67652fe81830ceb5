package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/vovakirdan/studychat-server/internal/store"
)

const historyReadTimeout = 10 * time.Second

// HistoryHandler serves the persisted transcript over plain HTTP.
type HistoryHandler struct {
	store   store.MessageStore
	log     *zerolog.Logger
	timeout time.Duration
	// Concurrent GET /messages calls share one ListAll.
	group singleflight.Group
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(st store.MessageStore, logger *zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{store: st, log: logger, timeout: historyReadTimeout}
}

// List handles GET /messages.
func (h *HistoryHandler) List(c *gin.Context) {
	reqCtx := c.Request.Context()

	// The shared read must outlive the request that started it.
	ch := h.group.DoChan("messages", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), h.timeout)
		defer cancel()

		msgs, err := h.store.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return messagesToProto(msgs), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			h.log.Error().Err(res.Err).Msg("failed to load messages")
			c.JSON(stdhttp.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
			return
		}
		c.JSON(stdhttp.StatusOK, res.Val)
	case <-reqCtx.Done():
		h.log.Debug().Err(reqCtx.Err()).Msg("history request cancelled")
		c.Abort()
	}
}
