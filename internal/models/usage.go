package models

import (
	"time"
)

// UsageSession is one usage of a resource by a user. A session with a null
// EndTime is the active session for its resource; at most one such row may
// exist per resource at any time. Rows are never deleted, closing (setting
// EndTime) is the only mutation ever applied.
type UsageSession struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	ResourceID uint       `json:"resource_id" gorm:"not null;index"`
	UserID     uint       `json:"user_id" gorm:"not null;index"`
	StartTime  time.Time  `json:"start_time" gorm:"not null;index"`
	StartNotes string     `json:"start_notes" gorm:"type:text"`
	EndTime    *time.Time `json:"end_time" gorm:"index"`
	EndNotes   string     `json:"end_notes" gorm:"type:text"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Resource Resource `json:"resource,omitempty" gorm:"foreignKey:ResourceID"`
	User     User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Active reports whether the session is still open.
func (u *UsageSession) Active() bool {
	return u.EndTime == nil
}

// UsageInMinutes returns the session duration in minutes, or -1 while the
// session is still open.
func (u *UsageSession) UsageInMinutes() float64 {
	if u.EndTime == nil {
		return -1
	}
	return u.EndTime.Sub(u.StartTime).Minutes()
}
