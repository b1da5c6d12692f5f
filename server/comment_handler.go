package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/ireporter/models"
	"github.com/techagentng/ireporter/server/response"
)

func (s *Server) handleGetComments(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		comments, err := s.CommentService.GetComments(kind, id)
		if err != nil {
			respondError(c, err)
			return
		}
		out := make([]models.CommentResponse, 0, len(comments))
		for i := range comments {
			out = append(out, comments[i].Response())
		}
		response.JSON(c, "", http.StatusOK, out, nil)
	}
}

func (s *Server) handleAddComment(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		var req models.CommentRequest
		if err := decode(c, &req); err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}

		comment, err := s.CommentService.AddComment(user, kind, id, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "comment added", http.StatusCreated, comment.Response(), nil)
	}
}

func (s *Server) handleDeleteComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		if err != nil {
			respondError(c, err)
			return
		}
		id, err := paramID(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		if err := s.CommentService.DeleteComment(user, id); err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "comment deleted", http.StatusOK, nil, nil)
	}
}
