package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/server/response"
)

const resetLinkSent = "If that email is registered, a reset link has been sent"

func (s *Server) handleForgotPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		body := struct {
			Email string `json:"email" binding:"required,email" conform:"trim,lower"`
		}{}
		if err := decode(c, &body); err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}

		user, token, err := s.AuthService.RequestPasswordReset(body.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		if user == nil {
			response.JSON(c, resetLinkSent, http.StatusOK, nil, nil)
			return
		}

		link := strings.TrimRight(s.Config.ResetPasswordURL, "/") + "/" + url.PathEscape(token)
		if s.Mail != nil {
			if _, err := s.Mail.SendResetPassword(c.Request.Context(), user.Email, user.FirstName, link, s.Config.ResetTokenTTL); err != nil {
				logrus.WithError(err).WithField("email", user.Email).Error("sending reset email")
				response.JSON(c, "connection to mail service interrupted", http.StatusInternalServerError, nil, err)
				return
			}
		}
		response.JSON(c, resetLinkSent, http.StatusOK, nil, nil)
	}
}

func (s *Server) handleResetPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		body := struct {
			Password string `json:"password" binding:"required"`
		}{}
		if err := decode(c, &body); err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}
		if err := s.AuthService.ResetPassword(c.Request.Context(), c.Param("token"), body.Password); err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "Password reset successfully", http.StatusOK, nil, nil)
	}
}
