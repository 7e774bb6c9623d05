package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
		delta    float64
	}{
		{
			name:     "same point",
			a:        Point{Lat: 28.6139, Lng: 77.2090},
			b:        Point{Lat: 28.6139, Lng: 77.2090},
			expected: 0,
			delta:    0,
		},
		{
			name:     "one degree of latitude",
			a:        Point{Lat: 0, Lng: 0},
			b:        Point{Lat: 1, Lng: 0},
			expected: 111.195,
			delta:    0.01,
		},
		{
			name:     "new delhi to mumbai",
			a:        Point{Lat: 28.6139, Lng: 77.2090},
			b:        Point{Lat: 19.0760, Lng: 72.8777},
			expected: 1148.1,
			delta:    0.5,
		},
		{
			name:     "antipodal points",
			a:        Point{Lat: 0, Lng: 0},
			b:        Point{Lat: 0, Lng: 180},
			expected: math.Pi * EarthRadiusKm,
			delta:    0.001,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Distance(tc.a, tc.b)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, d, tc.delta)
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	points := []Point{
		{Lat: 12.9716, Lng: 77.5946},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 51.5072, Lng: -0.1276},
		{Lat: 90, Lng: 0},
		{Lat: -90, Lng: 180},
	}

	for _, a := range points {
		for _, b := range points {
			ab, err := Distance(a, b)
			require.NoError(t, err)
			ba, err := Distance(b, a)
			require.NoError(t, err)
			assert.InDelta(t, ab, ba, 1e-9)
			assert.GreaterOrEqual(t, ab, 0.0)
		}
		self, err := Distance(a, a)
		require.NoError(t, err)
		assert.Equal(t, 0.0, self)
	}
}

func TestDistance_InvalidCoordinate(t *testing.T) {
	valid := Point{Lat: 10, Lng: 10}
	invalid := []Point{
		{Lat: 90.0001, Lng: 0},
		{Lat: -91, Lng: 0},
		{Lat: 0, Lng: 180.5},
		{Lat: 0, Lng: -181},
		{Lat: math.NaN(), Lng: 0},
	}

	for _, p := range invalid {
		_, err := Distance(valid, p)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)

		_, err = Distance(p, valid)
		assert.ErrorIs(t, err, ErrInvalidCoordinate)
	}
}
