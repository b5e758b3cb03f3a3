package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// TriggerChannel discriminates the two delivery channels a trigger can use.
type TriggerChannel string

const (
	// ChannelPost is the outbound webhook channel. The name doubles as the
	// TriggerLog action type.
	ChannelPost TriggerChannel = "PostData"
	// ChannelEmail is the outbound email channel.
	ChannelEmail TriggerChannel = "SendEmail"
)

// Trigger is a notification configured on a paybutton, fired when one of the
// button's addresses receives a payment. A trigger is either a poster
// (PostURL + PostData template) or an emailer (comma-joined Emails); button
// CRUD enforces at most one trigger per channel per button.
type Trigger struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	PaybuttonID uint           `gorm:"index" json:"paybutton_id"`
	Paybutton   Paybutton      `gorm:"foreignKey:PaybuttonID" json:"paybutton,omitempty"`
	PostURL     string         `gorm:"type:varchar(2048)" json:"post_url" validate:"omitempty,url"`
	PostData    string         `gorm:"type:text" json:"post_data"`
	Emails      string         `gorm:"type:text" json:"emails"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Trigger) Validate() error {
	v := validator.New()

	return v.Struct(t)
}

// Channel derives the delivery channel from the configured fields. Emails
// wins when both are set, matching the dispatcher's per-channel branching.
func (t *Trigger) Channel() TriggerChannel {
	if strings.TrimSpace(t.Emails) != "" {
		return ChannelEmail
	}
	return ChannelPost
}

// Recipients splits the comma-joined email list, dropping empty entries.
func (t *Trigger) Recipients() []string {
	parts := strings.Split(t.Emails, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
