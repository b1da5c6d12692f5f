package services

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/config"
	"github.com/techagentng/ireporter/db"
	apiError "github.com/techagentng/ireporter/errors"
	"github.com/techagentng/ireporter/models"
)

type ReportService interface {
	CreateReport(ctx context.Context, user *models.User, kind models.Kind, fields *models.ReportFields, files []*multipart.FileHeader) (*models.Report, error)
	GetReport(kind models.Kind, id uint) (*models.Report, error)
	ListReports(kind models.Kind, filter db.ReportFilter) ([]models.Report, error)
	UpdateReport(ctx context.Context, user *models.User, kind models.Kind, id uint, fields *models.ReportFields, files []*multipart.FileHeader) (*models.Report, error)
	UpdateLocation(user *models.User, kind models.Kind, id uint, req *models.LocationRequest) (*models.Report, error)
	UpdateStatus(ctx context.Context, user *models.User, kind models.Kind, id uint, target models.Status) (*models.Report, models.Status, error)
	DeleteReport(ctx context.Context, user *models.User, kind models.Kind, id uint) error
}

type reportService struct {
	Config        *config.Config
	reportRepo    db.ReportRepository
	media         MediaService
	notifications NotificationService
}

func NewReportService(reportRepo db.ReportRepository, media MediaService, notifications NotificationService, conf *config.Config) ReportService {
	return &reportService{
		Config:        conf,
		reportRepo:    reportRepo,
		media:         media,
		notifications: notifications,
	}
}

func (r *reportService) internal(err error, msg string) error {
	logrus.WithError(err).Error(msg)
	return apiError.ErrInternalServerError
}

func coordinates(fields *models.ReportFields) (float64, float64) {
	lat, lng := models.DefaultLatitude, models.DefaultLongitude
	if fields.Latitude != nil && fields.Longitude != nil {
		lat, lng = *fields.Latitude, *fields.Longitude
	}
	return lat, lng
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func (r *reportService) CreateReport(ctx context.Context, user *models.User, kind models.Kind, fields *models.ReportFields, files []*multipart.FileHeader) (*models.Report, error) {
	lat, lng := coordinates(fields)
	if !validCoordinates(lat, lng) {
		return nil, apiError.New("latitude or longitude out of range", http.StatusBadRequest)
	}

	media, err := r.media.ProcessMedia(ctx, files)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		Kind:        kind,
		Title:       fields.Title,
		Description: fields.Description,
		Latitude:    lat,
		Longitude:   lng,
		Status:      models.StatusDraft,
		UserID:      user.ID,
		Media:       media,
	}
	if err := r.reportRepo.CreateReport(report); err != nil {
		r.media.Discard(ctx, mediaKeys(media)...)
		return nil, r.internal(err, "creating report")
	}
	return r.GetReport(kind, report.ID)
}

func (r *reportService) GetReport(kind models.Kind, id uint) (*models.Report, error) {
	report, err := r.reportRepo.FindReport(kind, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apiError.New(kind.Label()+" not found", http.StatusNotFound)
		}
		return nil, r.internal(err, "finding report")
	}
	return report, nil
}

func (r *reportService) ListReports(kind models.Kind, filter db.ReportFilter) ([]models.Report, error) {
	reports, err := r.reportRepo.ListReports(kind, filter)
	if err != nil {
		return nil, r.internal(err, "listing reports")
	}
	return reports, nil
}

// mutable loads a report the user may change: the owner's, still in draft.
func (r *reportService) mutable(user *models.User, kind models.Kind, id uint) (*models.Report, error) {
	report, err := r.GetReport(kind, id)
	if err != nil {
		return nil, err
	}
	if report.UserID != user.ID {
		return nil, apiError.ErrNotOwner
	}
	if report.Status != models.StatusDraft {
		return nil, apiError.ErrReportLocked(report.Status.Label())
	}
	return report, nil
}

// lockedOut reports why a guarded write matched no row: the report moved out
// of draft, or is gone, after mutable had checked it.
func (r *reportService) lockedOut(kind models.Kind, id uint) error {
	report, err := r.GetReport(kind, id)
	if err != nil {
		return err
	}
	return apiError.ErrReportLocked(report.Status.Label())
}

// UpdateReport edits the content of a draft. New files replace the stored
// media; without files the stored media is kept.
func (r *reportService) UpdateReport(ctx context.Context, user *models.User, kind models.Kind, id uint, fields *models.ReportFields, files []*multipart.FileHeader) (*models.Report, error) {
	report, err := r.mutable(user, kind, id)
	if err != nil {
		return nil, err
	}

	report.Title = fields.Title
	report.Description = fields.Description
	if fields.Latitude != nil && fields.Longitude != nil {
		if !validCoordinates(*fields.Latitude, *fields.Longitude) {
			return nil, apiError.New("latitude or longitude out of range", http.StatusBadRequest)
		}
		report.Latitude, report.Longitude = *fields.Latitude, *fields.Longitude
	}

	var media []models.ReportMedia
	previous := mediaKeys(report.Media)
	if len(files) > 0 {
		if media, err = r.media.ProcessMedia(ctx, files); err != nil {
			return nil, err
		}
	}

	if err := r.reportRepo.UpdateReport(report, media); err != nil {
		r.media.Discard(ctx, mediaKeys(media)...)
		if errors.Is(err, db.ErrNotEditable) {
			return nil, r.lockedOut(kind, id)
		}
		return nil, r.internal(err, "updating report")
	}
	if media != nil {
		r.media.Discard(ctx, previous...)
	}
	return r.GetReport(kind, id)
}

func (r *reportService) UpdateLocation(user *models.User, kind models.Kind, id uint, req *models.LocationRequest) (*models.Report, error) {
	if _, err := r.mutable(user, kind, id); err != nil {
		return nil, err
	}
	lat, lng := *req.Latitude, *req.Longitude
	if !validCoordinates(lat, lng) {
		return nil, apiError.New("latitude or longitude out of range", http.StatusBadRequest)
	}
	if err := r.reportRepo.UpdateLocation(id, user.ID, lat, lng); err != nil {
		if errors.Is(err, db.ErrNotEditable) {
			return nil, r.lockedOut(kind, id)
		}
		return nil, r.internal(err, "updating location")
	}
	return r.GetReport(kind, id)
}

// UpdateStatus applies an administrator's status change and returns the
// updated report with the status it moved from.
func (r *reportService) UpdateStatus(ctx context.Context, user *models.User, kind models.Kind, id uint, target models.Status) (*models.Report, models.Status, error) {
	if !user.IsAdmin {
		return nil, models.StatusUnknown, apiError.ErrAdminOnly
	}
	if target == models.StatusUnknown {
		return nil, models.StatusUnknown, apiError.New("unknown status", http.StatusBadRequest)
	}

	report, err := r.GetReport(kind, id)
	if err != nil {
		return nil, models.StatusUnknown, err
	}
	from := report.Status
	if !models.CanTransition(from, target) {
		return nil, from, apiError.ErrIllegalTransition(from.Label(), target.Label())
	}

	if err := r.reportRepo.UpdateStatus(id, from, target); err != nil {
		if errors.Is(err, db.ErrStaleStatus) {
			return nil, from, apiError.New("report status changed, reload and try again", http.StatusConflict)
		}
		return nil, from, r.internal(err, "updating status")
	}

	updated, err := r.GetReport(kind, id)
	if err != nil {
		return nil, from, err
	}
	if r.notifications != nil {
		r.notifications.NotifyStatusChange(ctx, updated, from, target)
	}
	return updated, from, nil
}

func (r *reportService) DeleteReport(ctx context.Context, user *models.User, kind models.Kind, id uint) error {
	if _, err := r.mutable(user, kind, id); err != nil {
		return err
	}
	media, err := r.reportRepo.DeleteReport(id, user.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotEditable) {
			return r.lockedOut(kind, id)
		}
		if errors.Is(err, db.ErrNotFound) {
			return apiError.New(kind.Label()+" not found", http.StatusNotFound)
		}
		return r.internal(err, "deleting report")
	}
	r.media.Discard(ctx, mediaKeys(media)...)
	return nil
}

func mediaKeys(media []models.ReportMedia) []string {
	keys := make([]string, 0, len(media))
	for _, m := range media {
		keys = append(keys, m.Key)
	}
	return keys
}
