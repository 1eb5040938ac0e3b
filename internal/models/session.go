package models

import "time"

// SessionUsage tracks how many generations a session has received
type SessionUsage struct {
	SessionID string    `gorm:"primaryKey;size:128" json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UsedCount int       `gorm:"default:0;not null" json:"used_count"`
}
