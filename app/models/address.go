package models

import "time"

// Address is a blockchain address watched for incoming payments. An address
// may back several paybuttons, each of which contributes its triggers when a
// payment for the address is observed.
type Address struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	Address    string      `gorm:"uniqueIndex:idx_address_network;type:varchar(120)" json:"address"`
	NetworkID  uint        `gorm:"uniqueIndex:idx_address_network;index" json:"network_id"`
	Network    Network     `gorm:"foreignKey:NetworkID" json:"network,omitempty"`
	Paybuttons []Paybutton `gorm:"many2many:addresses_on_buttons" json:"paybuttons,omitempty"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}
