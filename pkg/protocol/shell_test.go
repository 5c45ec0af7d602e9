package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeThinkTimeMS(t *testing.T) {
	tests := []struct {
		name         string
		mytime, inc  int
		wantApproxMS int
	}{
		{"long clock, no increment", 300000, 0, 7500},
		{"very low clock floors to the 15% slice", 200, 0, 30},
		{"fixed-time-per-move fallback", -1, 0, 10000},
		{"increment not added when remaining time is not more than 2x increment", 4000, 3000, 100},
		{"increment added when remaining time comfortably exceeds 2x increment", 10000, 100, 325},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeThinkTimeMS(tt.mytime, tt.inc)
			assert.Equal(t, tt.wantApproxMS, got)
		})
	}
}

func TestComputeThinkTimeMS_NeverExceedsCap(t *testing.T) {
	got := computeThinkTimeMS(10_000_000, 5_000_000)
	assert.Equal(t, 10000, got)
}
