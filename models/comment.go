package models

import "time"

// CommentKind distinguishes citizen comments from staff responses.
type CommentKind string

const (
	CommentUser     CommentKind = "user"
	CommentAdmin    CommentKind = "admin"
	CommentOfficial CommentKind = "official"
)

// ParseCommentKind returns the kind or false when raw is not one of the known kinds.
func ParseCommentKind(raw string) (CommentKind, bool) {
	switch CommentKind(raw) {
	case CommentUser, CommentAdmin, CommentOfficial:
		return CommentKind(raw), true
	}
	return "", false
}

// Comment is attached to exactly one report.
type Comment struct {
	Model
	ReportID   uint        `json:"report_id" gorm:"index;not null"`
	ReportType Kind        `json:"report_type" gorm:"type:varchar(20);not null"`
	UserID     uint        `json:"user_id" gorm:"index;not null"`
	User       User        `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Text       string      `json:"comment_text" gorm:"type:text;not null"`
	Type       CommentKind `json:"comment_type" gorm:"type:varchar(10);not null;default:'user'"`
}

type CommentRequest struct {
	Text string `json:"comment_text" binding:"required" conform:"trim"`
	Type string `json:"comment_type"`
}

type CommentResponse struct {
	ID             uint        `json:"id"`
	UserID         uint        `json:"user_id"`
	ReportType     Kind        `json:"report_type"`
	ReportID       uint        `json:"report_id"`
	Text           string      `json:"comment_text"`
	Type           CommentKind `json:"comment_type"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	ProfilePicture string      `json:"profile_picture,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (c *Comment) Response() CommentResponse {
	return CommentResponse{
		ID:             c.ID,
		UserID:         c.UserID,
		ReportType:     c.ReportType,
		ReportID:       c.ReportID,
		Text:           c.Text,
		Type:           c.Type,
		FirstName:      c.User.FirstName,
		LastName:       c.User.LastName,
		ProfilePicture: c.User.ProfilePicture,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
