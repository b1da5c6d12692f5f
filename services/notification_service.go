package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/db"
	apiError "github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/mailingservices"
	"github.com/techagentng/ireporter/models"
)

// Publisher pushes a notification to the live connections of a user.
type Publisher interface {
	Publish(userID uint, n *models.Notification)
}

type NotificationService interface {
	NotifyStatusChange(ctx context.Context, report *models.Report, from, to models.Status)
	GetNotifications(userID uint) ([]models.Notification, error)
	MarkAllRead(userID uint) (int64, error)
}

type notificationService struct {
	repo      db.NotificationRepository
	publisher Publisher
	mail      mailingservices.Mailer
}

func NewNotificationService(repo db.NotificationRepository, publisher Publisher, mail mailingservices.Mailer) NotificationService {
	return &notificationService{repo: repo, publisher: publisher, mail: mail}
}

// NotifyStatusChange records an in-app notification for the owner, pushes it to
// open sockets and emails the owner. Delivery failures are logged only.
func (n *notificationService) NotifyStatusChange(ctx context.Context, report *models.Report, from, to models.Status) {
	log := logrus.WithFields(logrus.Fields{
		"report_id": report.ID,
		"user_id":   report.UserID,
		"from":      from.APIValue(),
		"to":        to.APIValue(),
	})

	notification := &models.Notification{
		UserID:   report.UserID,
		ReportID: report.ID,
		Type:     report.Kind,
		Title:    fmt.Sprintf("%s status updated", report.Kind.Label()),
		Message:  fmt.Sprintf("Your %s %q is now %s", report.Kind.Label(), report.Title, to.Label()),
	}
	if err := n.repo.CreateNotification(notification); err != nil {
		log.WithError(err).Error("saving notification")
		return
	}
	if n.publisher != nil {
		n.publisher.Publish(report.UserID, notification)
	}

	if n.mail != nil && report.User.Email != "" {
		if _, err := n.mail.SendStatusChange(ctx, report.User.Email, report.User.FullName(), report.Title, to.Label()); err != nil {
			log.WithError(err).Warn("sending status email")
		}
	}
}

func (n *notificationService) GetNotifications(userID uint) ([]models.Notification, error) {
	out, err := n.repo.ListNotifications(userID)
	if err != nil {
		logrus.WithError(err).Error("listing notifications")
		return nil, apiError.ErrInternalServerError
	}
	return out, nil
}

func (n *notificationService) MarkAllRead(userID uint) (int64, error) {
	count, err := n.repo.MarkAllRead(userID)
	if err != nil {
		logrus.WithError(err).Error("marking notifications read")
		return 0, apiError.ErrInternalServerError
	}
	return count, nil
}
