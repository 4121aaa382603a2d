package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/noknowgram/server/internal/upload"
)

// UploadHandlers bridges multipart uploads to the file storage collaborator.
type UploadHandlers struct {
	store *upload.Store
	log   *zerolog.Logger
}

// NewUploadHandlers creates the upload handlers.
func NewUploadHandlers(store *upload.Store, logger *zerolog.Logger) *UploadHandlers {
	return &UploadHandlers{store: store, log: logger}
}

// Upload stores a multipart file and returns its reference.
// POST /api/upload
func (h *UploadHandlers) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return
	}

	f, err := header.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("open multipart file")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	defer f.Close()

	ref, err := h.store.Save(f, header.Filename)
	if err != nil {
		if errors.Is(err, upload.ErrDisallowedType) || errors.Is(err, upload.ErrEmptyFilename) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Str("filename", header.Filename).Msg("store upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("file_id", ref.ID).Str("filename", ref.Name).Msg("file uploaded")
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"id":            ref.ID,
		"original_name": ref.Name,
		"url":           ref.URL,
	})
}
