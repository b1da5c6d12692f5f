package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/ireporter/models"
	"github.com/techagentng/ireporter/server/response"
)

type upvoteFunc func(userID uint, kind models.Kind, reportID uint) (*models.UpvoteSummary, error)

// upvoteHandler adapts one UpvoteService call to a route.
func upvoteHandler(kind models.Kind, status int, call upvoteFunc) gin.HandlerFunc {
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
		summary, err := call(user.ID, kind, id)
		if err != nil {
			respondError(c, err)
			return
		}
		response.JSON(c, "", status, summary, nil)
	}
}

func (s *Server) handleGetUpvotes(kind models.Kind) gin.HandlerFunc {
	return upvoteHandler(kind, http.StatusOK, s.UpvoteService.GetUpvotes)
}

func (s *Server) handleUpvote(kind models.Kind) gin.HandlerFunc {
	return upvoteHandler(kind, http.StatusCreated, s.UpvoteService.Upvote)
}

func (s *Server) handleRemoveUpvote(kind models.Kind) gin.HandlerFunc {
	return upvoteHandler(kind, http.StatusOK, s.UpvoteService.RemoveUpvote)
}

func (s *Server) handleToggleUpvote(kind models.Kind) gin.HandlerFunc {
	return upvoteHandler(kind, http.StatusOK, s.UpvoteService.ToggleUpvote)
}
