package models

import (
	"time"

	"gorm.io/gorm"
)

// Paybutton is a payment button configured by a user. It is linked to one or
// more receiving addresses and carries at most one trigger per channel.
type Paybutton struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Name      string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=1,max=150"`
	Addresses []Address      `gorm:"many2many:addresses_on_buttons" json:"addresses,omitempty"`
	Triggers  []Trigger      `gorm:"foreignKey:PaybuttonID" json:"triggers,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
