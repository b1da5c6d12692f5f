package services

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/db"
	apiError "github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
)

type CommentService interface {
	AddComment(user *models.User, kind models.Kind, reportID uint, req *models.CommentRequest) (*models.Comment, error)
	GetComments(kind models.Kind, reportID uint) ([]models.Comment, error)
	DeleteComment(user *models.User, commentID uint) error
}

type commentService struct {
	commentRepo db.CommentRepository
	reports     ReportService
}

func NewCommentService(commentRepo db.CommentRepository, reports ReportService) CommentService {
	return &commentService{commentRepo: commentRepo, reports: reports}
}

// AddComment attaches a comment to a report. Only administrators may post
// admin or official comments.
func (c *commentService) AddComment(user *models.User, kind models.Kind, reportID uint, req *models.CommentRequest) (*models.Comment, error) {
	if req.Text == "" {
		return nil, apiError.New("comment_text is required", http.StatusBadRequest)
	}
	commentType := models.CommentUser
	if req.Type != "" {
		ct, ok := models.ParseCommentKind(req.Type)
		if !ok {
			return nil, apiError.New("invalid comment_type", http.StatusBadRequest)
		}
		commentType = ct
	}
	if commentType != models.CommentUser && !user.IsAdmin {
		return nil, apiError.ErrAdminOnly
	}

	if _, err := c.reports.GetReport(kind, reportID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ReportID:   reportID,
		ReportType: kind,
		UserID:     user.ID,
		Text:       req.Text,
		Type:       commentType,
	}
	if err := c.commentRepo.CreateComment(comment); err != nil {
		logrus.WithError(err).Error("creating comment")
		return nil, apiError.ErrInternalServerError
	}
	return comment, nil
}

func (c *commentService) GetComments(kind models.Kind, reportID uint) ([]models.Comment, error) {
	if _, err := c.reports.GetReport(kind, reportID); err != nil {
		return nil, err
	}
	comments, err := c.commentRepo.ListComments(reportID)
	if err != nil {
		logrus.WithError(err).Error("listing comments")
		return nil, apiError.ErrInternalServerError
	}
	return comments, nil
}

// DeleteComment removes a comment. The author and administrators may delete.
func (c *commentService) DeleteComment(user *models.User, commentID uint) error {
	comment, err := c.commentRepo.FindComment(commentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apiError.New("comment not found", http.StatusNotFound)
		}
		logrus.WithError(err).Error("finding comment")
		return apiError.ErrInternalServerError
	}
	if comment.UserID != user.ID && !user.IsAdmin {
		return apiError.New("only the author can delete this comment", http.StatusForbidden)
	}
	if err := c.commentRepo.DeleteComment(commentID); err != nil {
		logrus.WithError(err).Error("deleting comment")
		return apiError.ErrInternalServerError
	}
	return nil
}
