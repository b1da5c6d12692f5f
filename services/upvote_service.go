package services

import (
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/db"
	apiError "github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
)

type UpvoteService interface {
	GetUpvotes(userID uint, kind models.Kind, reportID uint) (*models.UpvoteSummary, error)
	Upvote(userID uint, kind models.Kind, reportID uint) (*models.UpvoteSummary, error)
	RemoveUpvote(userID uint, kind models.Kind, reportID uint) (*models.UpvoteSummary, error)
	ToggleUpvote(userID uint, kind models.Kind, reportID uint) (*models.UpvoteSummary, error)
}

type upvoteService struct {
	upvoteRepo db.UpvoteRepository
	reports    ReportService
}

func NewUpvoteService(upvoteRepo db.UpvoteRepository, reports ReportService) UpvoteService {
	return &upvoteService{upvoteRepo: upvoteRepo, reports: reports}
}

func (u *upvoteService) summary(userID, reportID uint) (*models.UpvoteSummary, error) {
	count, err := u.upvoteRepo.CountUpvotes(reportID)
	if err != nil {
		logrus.WithError(err).Error("counting upvotes")
		return nil, apiError.ErrInternalServerError
	}
	voted, err := u.upvoteRepo.HasUpvoted(userID, reportID)
	if err != nil {
		logrus.WithError(err).Error("checking upvote")
		return nil, apiError.ErrInternalServerError
	}
	return &models.UpvoteSummary{Count: count, UserUpvoted: voted}, nil
}

func (u *upvoteService) GetUpvotes(userID uint, kind models.Kind, reportID uint) (*models.UpvoteSummary, error) {
	if _, err := u.reports.GetReport(kind, reportID); err != nil {
		return nil, err
	}
	return u.summary(userID, reportID)
}

func (u *upvoteService) Upvote(userID uint, kind models.Kind, reportID uint) (*models.UpvoteSummary, error) {
	if _, err := u.reports.GetReport(kind, reportID); err != nil {
		return nil, err
	}
	if err := u.upvoteRepo.AddUpvote(userID, reportID); err != nil {
		logrus.WithError(err).Error("adding upvote")
		return nil, apiError.ErrInternalServerError
	}
	return u.summary(userID, reportID)
}

func (u *upvoteService) RemoveUpvote(userID uint, kind models.Kind, reportID uint) (*models.UpvoteSummary, error) {
	if _, err := u.reports.GetReport(kind, reportID); err != nil {
		return nil, err
	}
	if err := u.upvoteRepo.RemoveUpvote(userID, reportID); err != nil {
		logrus.WithError(err).Error("removing upvote")
		return nil, apiError.ErrInternalServerError
	}
	return u.summary(userID, reportID)
}

func (u *upvoteService) ToggleUpvote(userID uint, kind models.Kind, reportID uint) (*models.UpvoteSummary, error) {
	current, err := u.GetUpvotes(userID, kind, reportID)
	if err != nil {
		return nil, err
	}
	if current.UserUpvoted {
		return u.RemoveUpvote(userID, kind, reportID)
	}
	return u.Upvote(userID, kind, reportID)
}
