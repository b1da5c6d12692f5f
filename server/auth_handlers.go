package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
	"github.com/techagentng/ireporter/server/response"
)

func (s *Server) handleSignup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.SignupRequest
		if err := decode(c, &user); err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}
		userResponse, err := s.AuthService.SignupUser(&user)
		if err != nil {
			respondError(c, err)
			return
		}

		if s.Mail != nil {
			go func(email, name string) {
				if _, err := s.Mail.SendWelcomeMessage(context.Background(), email, name); err != nil {
					logrus.WithError(err).WithField("email", email).Warn("sending welcome email")
				}
			}(user.Email, user.FirstName)
		}
		response.JSON(c, "Signup successful", http.StatusCreated, []interface{}{userResponse}, nil)
	}
}

func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var loginRequest models.LoginRequest
		if err := decode(c, &loginRequest); err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}
		userResponse, err := s.AuthService.LoginUser(&loginRequest)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "login successful", http.StatusOK, []interface{}{userResponse}, nil)
	}
}

func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.AuthService.LogoutUser(c.Request.Context(), c.GetString("access_token")); err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "logout successful", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleShowProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "", http.StatusOK, user.Response(), nil)
	}
}

func (s *Server) handleEditUserProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var details models.EditProfileRequest
		if err := decode(c, &details); err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}
		updated, err := s.AuthService.EditUserProfile(user.ID, &details)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "profile updated", http.StatusOK, updated.Response(), nil)
	}
}

func (s *Server) handleUploadProfilePicture() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		fileHeader, err := c.FormFile("profile_picture")
		if err != nil {
			respondError(c, errors.New("profile_picture is required", http.StatusBadRequest))
			return
		}

		key, err := s.MediaService.ProcessProfilePicture(c.Request.Context(), fileHeader)
		if err != nil {
			respondError(c, err)
			return
		}
		previous := user.ProfilePicture
		updated, err := s.AuthService.UpdateProfilePicture(user.ID, key)
		if err != nil {
			s.MediaService.Discard(c.Request.Context(), key)
			respondError(c, err)
			return
		}
		if previous != "" {
			s.MediaService.Discard(c.Request.Context(), previous)
		}
		response.JSON(c, "profile picture updated", http.StatusOK, updated.Response(), nil)
	}
}

func (s *Server) handleGetAllUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.AuthService.GetAllUsers()
		if err != nil {
			respondError(c, err)
			return
		}
		out := make([]models.UserResponse, 0, len(users))
		for i := range users {
			out = append(out, users[i].Response())
		}
		response.JSON(c, "", http.StatusOK, out, nil)
	}
}
