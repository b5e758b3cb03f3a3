package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidNetworkID(t *testing.T) {
	assert.True(t, ValidNetworkID(NetworkIDEcash))
	assert.True(t, ValidNetworkID(NetworkIDBitcoinCash))
	assert.False(t, ValidNetworkID(0))
	assert.False(t, ValidNetworkID(99))
}

func TestNetworkTicker(t *testing.T) {
	assert.Equal(t, TickerEcash, NetworkTicker(NetworkIDEcash))
	assert.Equal(t, TickerBitcoinCash, NetworkTicker(NetworkIDBitcoinCash))
	// Unknown ids fall back to the eCash ticker; ingestion filters them out
	// via ValidNetworkID before they ever reach formatting.
	assert.Equal(t, TickerEcash, NetworkTicker(99))
}
