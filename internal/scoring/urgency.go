package scoring

import (
	"math"

	"github.com/smartplate/redistribution/internal/storage"
)

const (
	DefaultUrgencyThresholdHours = 4.0
	DefaultUrgencyMaxBonus       = 0.3
	emergencyFloor               = 0.9
)

// UrgencyPolicy maps an urgency level and the hours left before expiry to a
// priority weight in [0,1].
type UrgencyPolicy struct {
	Base           map[storage.Urgency]float64
	ThresholdHours float64
	MaxBonus       float64
}

func DefaultUrgencyPolicy() UrgencyPolicy {
	return UrgencyPolicy{
		Base: map[storage.Urgency]float64{
			storage.UrgencyLow:       0.1,
			storage.UrgencyMedium:    0.3,
			storage.UrgencyHigh:      0.6,
			storage.UrgencyEmergency: emergencyFloor,
		},
		ThresholdHours: DefaultUrgencyThresholdHours,
		MaxBonus:       DefaultUrgencyMaxBonus,
	}
}

// Weight returns base(level) plus a bonus that grows linearly from zero at the
// threshold to MaxBonus at expiry. Emergency requests never drop below 0.9.
func (p UrgencyPolicy) Weight(level storage.Urgency, hoursRemaining float64) float64 {
	w := p.Base[level]

	if p.ThresholdHours > 0 && hoursRemaining <= p.ThresholdHours {
		left := math.Max(0, hoursRemaining)
		w += p.MaxBonus * (1 - left/p.ThresholdHours)
	}

	if level == storage.UrgencyEmergency {
		w = math.Max(w, emergencyFloor)
	}
	return clamp01(w)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
