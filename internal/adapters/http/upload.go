package http

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tsenko/CollabSpace/internal/adapters/relay"
	"github.com/tsenko/CollabSpace/internal/config"
	"github.com/tsenko/CollabSpace/internal/domain"
)

// uploadHandler is the HTTP side-channel for file sharing: store the blob,
// answer the uploader with the file meta, announce it into the room. A
// failed upload surfaces only here, never through the relay.
func uploadHandler(cfg *config.Config, ctl *relay.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
			return
		}
		roomID := domain.RoomID(c.PostForm("roomId"))
		if roomID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing roomId"})
			return
		}

		id := uuid.NewString()
		stored := fmt.Sprintf("%s%s", id, filepath.Ext(file.Filename))
		if err := c.SaveUploadedFile(file, filepath.Join(cfg.UploadsDir, stored)); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("save upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
			return
		}

		meta := domain.FileMeta{
			ID:       id,
			Name:     file.Filename,
			URL:      fmt.Sprintf("%s/uploads/%s", cfg.PublicBaseURL, stored),
			Comments: []domain.Comment{},
		}
		ctl.PublishFileUploaded(roomID, meta)
		log.Info().Str("module", "adapters.http").Str("file", file.Filename).Str("room", string(roomID)).Msg("file uploaded")
		c.JSON(http.StatusOK, meta)
	}
}
