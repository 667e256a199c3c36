package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		wantKM     float64
		tolerance  float64
	}{
		{
			name: "same point",
			lat1: 37.0, lon1: -122.0,
			lat2: 37.0, lon2: -122.0,
			wantKM: 0, tolerance: 0.001,
		},
		{
			name: "one degree of latitude",
			lat1: 37.0, lon1: -122.0,
			lat2: 38.0, lon2: -122.0,
			wantKM: 111.19, tolerance: 0.5,
		},
		{
			name: "san francisco to los angeles",
			lat1: 37.7749, lon1: -122.4194,
			lat2: 34.0522, lon2: -118.2437,
			wantKM: 559.0, tolerance: 5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.wantKM, got, tt.tolerance)
		})
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	forward := Distance(37.7749, -122.4194, 34.0522, -118.2437)
	backward := Distance(34.0522, -118.2437, 37.7749, -122.4194)
	assert.InDelta(t, forward, backward, 1e-9)
}

func TestETASeconds(t *testing.T) {
	eta, ok := ETASeconds(37.0, -122.0, 37.01, -122.0, 30)
	require.True(t, ok)
	assert.Greater(t, eta, 0.0)

	// ~1.11 km at 30 km/h is ~133 seconds.
	assert.InDelta(t, 133.0, eta, 10.0)
}

func TestETASecondsNonPositiveSpeed(t *testing.T) {
	for _, speed := range []float64{0, -10} {
		_, ok := ETASeconds(37.0, -122.0, 38.0, -122.0, speed)
		assert.False(t, ok)
	}
}
