package models

// Notification is an in-app message for one user.
type Notification struct {
	Model
	UserID   uint   `json:"user_id" gorm:"index;not null"`
	ReportID uint   `json:"report_id,omitempty"`
	Type     Kind   `json:"report_type,omitempty" gorm:"type:varchar(20)"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	IsRead   bool   `json:"is_read" gorm:"default:false"`
}
