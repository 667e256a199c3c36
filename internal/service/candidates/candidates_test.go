package candidates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchRadii(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []float64
	}{
		{
			name: "full ladder within cap",
			cfg:  Config{SearchRadiusKM: 5, MaxSearchRadiusKM: 50},
			want: []float64{5, 10, 20, 50},
		},
		{
			name: "cap truncates the ladder",
			cfg:  Config{SearchRadiusKM: 5, MaxSearchRadiusKM: 15},
			want: []float64{5, 10},
		},
		{
			name: "cap below first expansion",
			cfg:  Config{SearchRadiusKM: 5, MaxSearchRadiusKM: 5},
			want: []float64{5},
		},
		{
			name: "missing cap defaults to 50",
			cfg:  Config{SearchRadiusKM: 5},
			want: []float64{5, 10, 20, 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, searchRadii(tt.cfg))
		})
	}
}
