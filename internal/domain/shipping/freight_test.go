package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreightClass(t *testing.T) {
	tests := []struct {
		name     string
		weightLb float64
		dims     Dimensions
		want     string
	}{
		{"low pallet tier", 480, Dimensions{48, 40, 36}, "85"},
		{"tall pallet tier", 940, Dimensions{48, 40, 60}, "77.5"},
		{"very dense", 2000, Dimensions{48, 40, 36}, "50"},
		{"exactly on boundary", 150, Dimensions{12, 12, 12 * 10}, "70"},
		{"very light", 20, Dimensions{48, 40, 60}, "500"},
		{"no volume", 100, Dimensions{}, "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FreightClass(tt.weightLb, tt.dims))
		})
	}
}

func TestDensity(t *testing.T) {
	assert.Equal(t, 12.0, Density(480, Dimensions{48, 40, 36}))
	assert.Equal(t, 0.0, Density(10, Dimensions{}))
}
