package db

import (
	"github.com/pkg/errors"
	"github.com/techagentng/ireporter/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UpvoteRepository interface {
	AddUpvote(userID, reportID uint) error
	RemoveUpvote(userID, reportID uint) error
	HasUpvoted(userID, reportID uint) (bool, error)
	CountUpvotes(reportID uint) (int64, error)
}

type upvoteRepo struct {
	DB *gorm.DB
}

func NewUpvoteRepo(db *GormDB) UpvoteRepository {
	return &upvoteRepo{db.DB}
}

// AddUpvote is idempotent: a second upvote by the same user is a no-op.
func (u *upvoteRepo) AddUpvote(userID, reportID uint) error {
	vote := models.Upvote{UserID: userID, ReportID: reportID}
	err := u.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&vote).Error
	return errors.Wrap(err, "add upvote")
}

func (u *upvoteRepo) RemoveUpvote(userID, reportID uint) error {
	err := u.DB.Where("user_id = ? AND report_id = ?", userID, reportID).Delete(&models.Upvote{}).Error
	return errors.Wrap(err, "remove upvote")
}

func (u *upvoteRepo) HasUpvoted(userID, reportID uint) (bool, error) {
	var count int64
	err := u.DB.Model(&models.Upvote{}).
		Where("user_id = ? AND report_id = ?", userID, reportID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check upvote")
	}
	return count > 0, nil
}

func (u *upvoteRepo) CountUpvotes(reportID uint) (int64, error) {
	var count int64
	if err := u.DB.Model(&models.Upvote{}).Where("report_id = ?", reportID).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count upvotes")
	}
	return count, nil
}
