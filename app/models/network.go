package models

import "time"

const (
	NetworkIDEcash       uint = 1
	NetworkIDBitcoinCash uint = 2

	TickerEcash       = "XEC"
	TickerBitcoinCash = "BCH"
)

// Network is a supported blockchain. The slug matches the address prefix
// ("ecash", "bitcoincash"); the ticker is used when formatting notification
// payloads.
type Network struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;type:varchar(50)" json:"slug"`
	Ticker    string    `gorm:"type:varchar(10)" json:"ticker"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValidNetworkID reports whether the id belongs to a supported chain.
// Ingestion must reject anything else before it reaches the dispatcher.
func ValidNetworkID(networkID uint) bool {
	switch networkID {
	case NetworkIDEcash, NetworkIDBitcoinCash:
		return true
	}
	return false
}

// NetworkTicker maps a network id to its currency ticker. Unknown networks
// fall back to the eCash ticker.
func NetworkTicker(networkID uint) string {
	switch networkID {
	case NetworkIDBitcoinCash:
		return TickerBitcoinCash
	default:
		return TickerEcash
	}
}
