package database

import (
	"time"
)

// Recording represents a stored screen recording or screenshot.
//
// Filename is the on-disk blob name inside the uploads directory. Slug is the
// public lookup key; the two namespaces are independent. ExpiresAt is always
// derived from the creation time plus the retention window, never supplied by
// the uploader.
type Recording struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Filename  string    `gorm:"uniqueIndex;not null" json:"filename"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	FileSize  int64     `json:"file_size"`
	Duration  *float64  `json:"duration,omitempty"`
}

// TableName overrides the default table name
func (Recording) TableName() string {
	return "recordings"
}

// IsExpired reports whether the recording is past its retention window at now.
func (r *Recording) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
