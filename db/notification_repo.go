package db

import (
	"github.com/pkg/errors"
	"github.com/techagentng/ireporter/models"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	CreateNotification(n *models.Notification) error
	ListNotifications(userID uint) ([]models.Notification, error)
	MarkAllRead(userID uint) (int64, error)
}

type notificationRepo struct {
	DB *gorm.DB
}

func NewNotificationRepo(db *GormDB) NotificationRepository {
	return &notificationRepo{db.DB}
}

func (n *notificationRepo) CreateNotification(notification *models.Notification) error {
	return errors.Wrap(n.DB.Create(notification).Error, "create notification")
}

func (n *notificationRepo) ListNotifications(userID uint) ([]models.Notification, error) {
	var out []models.Notification
	err := n.DB.Where("user_id = ?", userID).Order("created_at DESC").Limit(100).Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	return out, nil
}

func (n *notificationRepo) MarkAllRead(userID uint) (int64, error) {
	result := n.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "mark notifications read")
	}
	return result.RowsAffected, nil
}
