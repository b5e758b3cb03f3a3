package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampDebit(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		accepted int
		want     int
	}{
		{name: "accepted below balance", current: 10, accepted: 3, want: 3},
		{name: "accepted equals balance", current: 5, accepted: 5, want: 5},
		{name: "accepted above balance clamps", current: 5, accepted: 10, want: 5},
		{name: "zero balance", current: 0, accepted: 4, want: 0},
		{name: "zero accepted", current: 5, accepted: 0, want: 0},
		{name: "negative balance never over-applies", current: -1, accepted: 2, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampDebit(tt.current, tt.accepted)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got, tt.accepted, "debit must never exceed accepted deliveries")
			if tt.current >= 0 {
				assert.GreaterOrEqual(t, tt.current-got, 0, "balance must never go negative")
			}
		})
	}
}
