package models

import "time"

// Upvote records that a user backs a report. One row per (user, report).
type Upvote struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uint      `gorm:"uniqueIndex:idx_upvote_user_report;not null"`
	ReportID  uint      `gorm:"uniqueIndex:idx_upvote_user_report;index;not null"`
	CreatedAt time.Time
}

// UpvoteSummary is the aggregated view returned to clients.
type UpvoteSummary struct {
	Count       int64 `json:"count"`
	UserUpvoted bool  `json:"user_upvoted"`
}
