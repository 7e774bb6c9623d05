package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrUnknownFoodCategory = errors.New("unknown food category")

// DefaultShelfLifeHours lists how long each food category stays safe after
// the request is created.
func DefaultShelfLifeHours() map[string]float64 {
	return map[string]float64{
		"cooked":   6,
		"meat":     12,
		"dairy":    24,
		"bakery":   48,
		"produce":  72,
		"packaged": 720,
	}
}

type SpoilageEstimator struct {
	shelfLife map[string]float64
}

func NewSpoilageEstimator(shelfLifeHours map[string]float64) (*SpoilageEstimator, error) {
	table := make(map[string]float64, len(shelfLifeHours))
	for category, hours := range shelfLifeHours {
		if hours <= 0 {
			return nil, fmt.Errorf("shelf life for %q must be positive, got %v", category, hours)
		}
		table[normalizeCategory(category)] = hours
	}
	return &SpoilageEstimator{shelfLife: table}, nil
}

// Known reports whether category has a configured shelf life.
func (e *SpoilageEstimator) Known(category string) bool {
	_, ok := e.shelfLife[normalizeCategory(category)]
	return ok
}

// Risk returns min(100, 100*elapsed/shelfLife). Negative elapsed time counts as zero.
func (e *SpoilageEstimator) Risk(category string, elapsedHours float64) (float64, error) {
	shelfLife, ok := e.shelfLife[normalizeCategory(category)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFoodCategory, category)
	}
	elapsed := math.Max(0, elapsedHours)
	return math.Min(100, 100*elapsed/shelfLife), nil
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
