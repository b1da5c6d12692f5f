package server

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/server/response"
)

func (s *Server) handleGetNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		notifications, err := s.NotificationService.GetNotifications(user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, notifications, nil)
	}
}

func (s *Server) handleMarkNotificationsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		updated, err := s.NotificationService.MarkAllRead(user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "notifications marked as read", http.StatusOK, gin.H{"updated": updated}, nil)
	}
}

func (s *Server) upgrader() *websocket.Upgrader {
	origins := s.Config.AllowedOrigins()
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range origins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

func (s *Server) handleNotificationSocket() gin.HandlerFunc {
	upgrader := s.upgrader()
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			logrus.WithError(err).Warn("upgrading notification socket")
			return
		}
		s.Hub.serve(user.ID, conn)
	}
}
