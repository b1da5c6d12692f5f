package server

import (
	"net/http"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	errs "github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/server/response"
)

// Authorize resolves the bearer token to a user and stores it on the context.
func (s *Server) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := getTokenFromHeader(c)
		if accessToken == "" {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.New("Unauthorized", http.StatusUnauthorized))
			return
		}

		user, err := s.AuthService.AuthenticateToken(c.Request.Context(), accessToken)
		if err != nil {
			status := errs.StatusOf(err)
			respondAndAbort(c, "", status, nil, errs.New(err.Error(), status))
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Set("access_token", accessToken)
		c.Next()
	}
}

// RequireAdmin must run after Authorize.
func (s *Server) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.ErrUnauthorized)
			return
		}
		if !user.IsAdmin {
			respondAndAbort(c, "", http.StatusForbidden, nil, errs.ErrAdminOnly)
			return
		}
		c.Next()
	}
}

func limitRate(store ratelimit.Store) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: errs.ErrorHandler,
		KeyFunc:      keyFunc,
	})
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(started).Milliseconds(),
			"client_ip":   c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("http request")
			return
		}
		entry.Info("http request")
	}
}

// respondAndAbort calls response.JSON and aborts the Context
func respondAndAbort(c *gin.Context, message string, status int, data interface{}, e *errs.Error) {
	response.JSON(c, message, status, data, e)
	c.Abort()
}

// getTokenFromHeader returns the bearer token. Websocket upgrades may pass it
// as the token query parameter since browsers cannot set headers there.
func getTokenFromHeader(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}
