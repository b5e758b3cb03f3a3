package models

import "time"

// DispatchCounter aggregates operational trigger counters per channel.
// Live increments happen in Redis and are flushed here periodically.
type DispatchCounter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Channel   string    `gorm:"uniqueIndex;type:varchar(20)" json:"channel"`
	Scheduled int64     `gorm:"default:0" json:"scheduled"`
	Skipped   int64     `gorm:"default:0" json:"skipped"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
