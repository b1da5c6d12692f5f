package models

import (
	"time"
)

// DefaultLatitude and DefaultLongitude are used when a report has no location.
const (
	DefaultLatitude  = 0.3476
	DefaultLongitude = 32.5825
)

// MaxReportFiles is the number of media files accepted per submission.
const MaxReportFiles = 2

// Report is one citizen submission of either kind.
type Report struct {
	Model
	Kind        Kind          `json:"type" gorm:"type:varchar(20);index;not null"`
	Title       string        `json:"title" gorm:"not null"`
	Description string        `json:"description" gorm:"type:text;not null"`
	Latitude    float64       `json:"latitude"`
	Longitude   float64       `json:"longitude"`
	Status      Status        `json:"status" gorm:"type:varchar(32);index;not null;default:'draft'"`
	UserID      uint          `json:"user_id" gorm:"index;not null"`
	User        User          `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Media       []ReportMedia `json:"-" gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
}

// MediaKind classifies a stored attachment.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// ReportMedia is one stored attachment. Key is the media store reference.
type ReportMedia struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ReportID    uint      `json:"report_id" gorm:"index;not null"`
	Kind        MediaKind `json:"kind" gorm:"type:varchar(10);not null"`
	Key         string    `json:"key" gorm:"not null"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportResponse is the wire shape of a report.
type ReportResponse struct {
	ID          uint      `json:"id"`
	Type        Kind      `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Status      Status    `json:"status"`
	UserID      uint      `json:"user_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Images      []string  `json:"images"`
	Videos      []string  `json:"videos"`
	Audio       []string  `json:"audio"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Response projects the report with its owner and ordered media.
func (r *Report) Response() ReportResponse {
	resp := ReportResponse{
		ID:          r.ID,
		Type:        r.Kind,
		Title:       r.Title,
		Description: r.Description,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Status:      r.Status,
		UserID:      r.UserID,
		FirstName:   r.User.FirstName,
		LastName:    r.User.LastName,
		Images:      []string{},
		Videos:      []string{},
		Audio:       []string{},
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, m := range r.Media {
		switch m.Kind {
		case MediaImage:
			resp.Images = append(resp.Images, m.Key)
		case MediaVideo:
			resp.Videos = append(resp.Videos, m.Key)
		case MediaAudio:
			resp.Audio = append(resp.Audio, m.Key)
		}
	}
	return resp
}

// ReportFields are the editable content fields of a report.
type ReportFields struct {
	Title       string   `json:"title" form:"title" binding:"required" conform:"trim"`
	Description string   `json:"description" form:"description" binding:"required" conform:"trim"`
	Latitude    *float64 `json:"latitude" form:"latitude"`
	Longitude   *float64 `json:"longitude" form:"longitude"`
}

// LocationRequest is the body of a relocate call.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// StatusRequest is the body of an admin status change.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}
