package db

import (
	"github.com/pkg/errors"
	"github.com/techagentng/ireporter/models"
	"gorm.io/gorm"
)

type CommentRepository interface {
	CreateComment(comment *models.Comment) error
	ListComments(reportID uint) ([]models.Comment, error)
	FindComment(id uint) (*models.Comment, error)
	DeleteComment(id uint) error
}

type commentRepo struct {
	DB *gorm.DB
}

func NewCommentRepo(db *GormDB) CommentRepository {
	return &commentRepo{db.DB}
}

func (c *commentRepo) CreateComment(comment *models.Comment) error {
	if err := c.DB.Create(comment).Error; err != nil {
		return errors.Wrap(err, "create comment")
	}
	return c.DB.Preload("User").First(comment, comment.ID).Error
}

func (c *commentRepo) ListComments(reportID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := c.DB.Preload("User").
		Where("report_id = ?", reportID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	return comments, nil
}

func (c *commentRepo) FindComment(id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := c.DB.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(ErrNotFound, "comment")
		}
		return nil, errors.Wrap(err, "find comment")
	}
	return &comment, nil
}

func (c *commentRepo) DeleteComment(id uint) error {
	result := c.DB.Delete(&models.Comment{}, id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete comment")
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(ErrNotFound, "comment")
	}
	return nil
}
