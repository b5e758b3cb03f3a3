package models

import "time"

// TriggerLog records one attempted trigger delivery. Exactly one row is
// written per attempt, whether it succeeded, failed in transport, or was
// skipped for lack of credit. Rows are append-only.
type TriggerLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TriggerID  uint           `gorm:"index" json:"trigger_id"`
	Trigger    Trigger        `gorm:"foreignKey:TriggerID" json:"trigger,omitempty"`
	ActionType TriggerChannel `gorm:"type:varchar(20);index" json:"action_type"`
	IsError    bool           `gorm:"default:false" json:"is_error"`
	Data       string         `gorm:"type:text" json:"data"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
