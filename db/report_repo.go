package db

import (
	"time"

	"github.com/pkg/errors"
	"github.com/techagentng/ireporter/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleStatus means the row no longer holds the status the update was based on.
var ErrStaleStatus = errors.New("report status changed concurrently")

// ErrNotEditable means the row is not a draft owned by the caller.
var ErrNotEditable = errors.New("report is not an editable draft")

// ReportFilter narrows ListReports. Zero values match everything.
type ReportFilter struct {
	UserID uint
	Status models.Status
}

type ReportRepository interface {
	CreateReport(report *models.Report) error
	FindReport(kind models.Kind, id uint) (*models.Report, error)
	ListReports(kind models.Kind, filter ReportFilter) ([]models.Report, error)
	UpdateReport(report *models.Report, media []models.ReportMedia) error
	UpdateLocation(id, userID uint, lat, lng float64) error
	UpdateStatus(id uint, from, to models.Status) error
	DeleteReport(id, userID uint) ([]models.ReportMedia, error)
}

type reportRepo struct {
	DB *gorm.DB
}

func NewReportRepo(db *GormDB) ReportRepository {
	return &reportRepo{db.DB}
}

func (r *reportRepo) withAssociations() *gorm.DB {
	return r.DB.Preload("User").Preload("Media", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

func (r *reportRepo) CreateReport(report *models.Report) error {
	if err := r.DB.Create(report).Error; err != nil {
		return errors.Wrap(err, "create report")
	}
	return nil
}

func (r *reportRepo) FindReport(kind models.Kind, id uint) (*models.Report, error) {
	var report models.Report
	err := r.withAssociations().Where("id = ? AND kind = ?", id, kind).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "%s %d", kind, id)
		}
		return nil, errors.Wrap(err, "find report")
	}
	return &report, nil
}

func (r *reportRepo) ListReports(kind models.Kind, filter ReportFilter) ([]models.Report, error) {
	q := r.withAssociations().Where("kind = ?", kind)
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != models.StatusUnknown {
		q = q.Where("status = ?", filter.Status)
	}

	var reports []models.Report
	if err := q.Order("created_at DESC").Find(&reports).Error; err != nil {
		return nil, errors.Wrap(err, "list reports")
	}
	return reports, nil
}

// editable scopes a write to a draft owned by userID.
func editable(tx *gorm.DB, id, userID uint) *gorm.DB {
	return tx.Model(&models.Report{}).Where("id = ? AND user_id = ? AND status = ?", id, userID, models.StatusDraft)
}

// UpdateReport saves the content fields of a draft owned by report.UserID.
// A non-nil media slice replaces the stored attachments; nil keeps them.
func (r *reportRepo) UpdateReport(report *models.Report, media []models.ReportMedia) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		result := editable(tx, report.ID, report.UserID).Updates(map[string]interface{}{
			"title":       report.Title,
			"description": report.Description,
			"latitude":    report.Latitude,
			"longitude":   report.Longitude,
			"updated_at":  time.Now(),
		})
		if result.Error != nil {
			return errors.Wrap(result.Error, "update report")
		}
		if result.RowsAffected == 0 {
			return ErrNotEditable
		}
		if media == nil {
			return nil
		}

		if err := tx.Where("report_id = ?", report.ID).Delete(&models.ReportMedia{}).Error; err != nil {
			return errors.Wrap(err, "clear report media")
		}
		for i := range media {
			media[i].ID = 0
			media[i].ReportID = report.ID
		}
		if len(media) > 0 {
			if err := tx.Create(&media).Error; err != nil {
				return errors.Wrap(err, "save report media")
			}
		}
		report.Media = media
		return nil
	})
}

func (r *reportRepo) UpdateLocation(id, userID uint, lat, lng float64) error {
	result := editable(r.DB, id, userID).Updates(map[string]interface{}{
		"latitude":   lat,
		"longitude":  lng,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return errors.Wrap(result.Error, "update location")
	}
	if result.RowsAffected == 0 {
		return ErrNotEditable
	}
	return nil
}

// UpdateStatus moves a report from one status to another. The update only
// applies while the row still holds from.
func (r *reportRepo) UpdateStatus(id uint, from, to models.Status) error {
	result := r.DB.Model(&models.Report{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "update status")
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// DeleteReport removes a draft owned by userID with its comments, upvotes and
// media rows, and returns the media that was attached so the caller can drop
// the stored files.
func (r *reportRepo) DeleteReport(id, userID uint) ([]models.ReportMedia, error) {
	var media []models.ReportMedia
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Report
		err := editable(tx, id, userID).Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&locked).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEditable
			}
			return errors.Wrap(err, "lock report")
		}
		if err := tx.Where("report_id = ?", id).Find(&media).Error; err != nil {
			return errors.Wrap(err, "load report media")
		}
		for _, model := range []interface{}{&models.ReportMedia{}, &models.Comment{}, &models.Upvote{}} {
			if err := tx.Where("report_id = ?", id).Delete(model).Error; err != nil {
				return errors.Wrap(err, "delete report children")
			}
		}
		result := tx.Delete(&models.Report{}, id)
		if result.Error != nil {
			return errors.Wrap(result.Error, "delete report")
		}
		if result.RowsAffected == 0 {
			return errors.Wrap(ErrNotFound, "report")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return media, nil
}
