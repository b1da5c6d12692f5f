package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/db"
	apiError "github.com/techagentng/ireporter/errors"
)

// handleServeUpload streams a stored attachment by its media key.
func (s *Server) handleServeUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		if key == "" {
			respondError(c, apiError.ErrNotFound)
			return
		}

		rc, contentType, err := s.MediaService.Open(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				respondError(c, apiError.ErrNotFound)
				return
			}
			logrus.WithError(err).WithField("key", key).Error("opening upload")
			respondError(c, apiError.ErrInternalServerError)
			return
		}
		defer rc.Close()

		c.Header("Cache-Control", "public, max-age=86400")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Content-Type", contentType)
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, rc); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("streaming upload")
		}
	}
}
