package http

import (
	"errors"
	"mime/multipart"
	stdhttp "net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/studychat-server/internal/files"
)

const pdfMIME = "application/pdf"

// multipart overhead allowed on top of the file limit
const uploadFormSlack = 1 << 20

// UploadHandler accepts PDF uploads and publishes them into the chat.
type UploadHandler struct {
	hub      Hub
	storage  *files.Storage
	maxBytes int64
	log      *zerolog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(hub Hub, storage *files.Storage, maxBytes int64, logger *zerolog.Logger) *UploadHandler {
	return &UploadHandler{hub: hub, storage: storage, maxBytes: maxBytes, log: logger}
}

// Upload handles POST /upload with multipart fields username, message and pdf.
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = stdhttp.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+uploadFormSlack)
	}

	username := strings.TrimSpace(c.PostForm("username"))
	header, err := c.FormFile("pdf")
	if err != nil {
		var tooLarge *stdhttp.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(stdhttp.StatusRequestEntityTooLarge, gin.H{"error": "File too large."})
			return
		}
	}
	if header == nil || username == "" {
		c.JSON(stdhttp.StatusBadRequest, gin.H{"error": "File or username missing."})
		return
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		c.JSON(stdhttp.StatusRequestEntityTooLarge, gin.H{"error": "File too large."})
		return
	}

	ok, err := isPDF(header)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to inspect upload")
		c.JSON(stdhttp.StatusInternalServerError, gin.H{"error": "Failed to read file."})
		return
	}
	if !ok {
		c.JSON(stdhttp.StatusBadRequest, gin.H{"error": "Only PDF files are allowed."})
		return
	}

	src, err := header.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to open upload")
		c.JSON(stdhttp.StatusInternalServerError, gin.H{"error": "Failed to read file."})
		return
	}
	defer src.Close()

	att, err := h.storage.Save(header.Filename, src)
	if err != nil {
		if errors.Is(err, files.ErrTooLarge) {
			c.JSON(stdhttp.StatusRequestEntityTooLarge, gin.H{"error": "File too large."})
			return
		}
		h.log.Error().Err(err).Msg("failed to store upload")
		c.JSON(stdhttp.StatusInternalServerError, gin.H{"error": "Failed to store file."})
		return
	}

	msg, err := h.hub.PublishAttachment(c.Request.Context(), username, c.PostForm("message"), att)
	if err != nil {
		h.log.Error().Err(err).Str("user", username).Str("file", att.Path).Msg("failed to publish upload")
		if rmErr := h.storage.Remove(att); rmErr != nil {
			h.log.Warn().Err(rmErr).Str("file", att.Path).Msg("failed to remove orphaned upload")
		}
		c.JSON(stdhttp.StatusInternalServerError, gin.H{"error": "Failed to save message."})
		return
	}

	h.log.Info().Str("user", username).Str("file", att.Path).Msg("file uploaded")
	c.JSON(stdhttp.StatusOK, messageToProto(msg))
}

// isPDF requires both a .pdf extension and PDF content.
func isPDF(header *multipart.FileHeader) (bool, error) {
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		return false, nil
	}
	f, err := header.Open()
	if err != nil {
		return false, err
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return false, err
	}
	return mt.Is(pdfMIME), nil
}
