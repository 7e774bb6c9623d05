package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/smartplate/redistribution/internal/geo"
	"github.com/smartplate/redistribution/internal/storage"
)

const DefaultMaxServiceRadiusKm = 25.0

type Weights struct {
	Proximity float64
	Urgency   float64
	Capacity  float64
}

func DefaultWeights() Weights {
	return Weights{Proximity: 0.4, Urgency: 0.35, Capacity: 0.25}
}

func (w Weights) Validate() error {
	if w.Proximity < 0 || w.Urgency < 0 || w.Capacity < 0 {
		return fmt.Errorf("scoring weights must not be negative: %+v", w)
	}
	if w.Proximity+w.Urgency+w.Capacity == 0 {
		return fmt.Errorf("scoring weights must not all be zero")
	}
	return nil
}

type ScorerConfig struct {
	Weights            Weights
	MaxServiceRadiusKm float64
}

// Scorer ranks candidates for a request. It holds no mutable state and is
// safe for concurrent use.
type Scorer struct {
	cfg      ScorerConfig
	urgency  UrgencyPolicy
	spoilage *SpoilageEstimator
	logger   *zap.Logger
}

func NewScorer(cfg ScorerConfig, urgency UrgencyPolicy, spoilage *SpoilageEstimator, logger *zap.Logger) (*Scorer, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxServiceRadiusKm <= 0 {
		return nil, fmt.Errorf("max service radius must be positive, got %v", cfg.MaxServiceRadiusKm)
	}
	if spoilage == nil {
		return nil, fmt.Errorf("spoilage estimator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		cfg:      cfg,
		urgency:  urgency,
		spoilage: spoilage,
		logger:   logger.With(zap.String("component", "match_scorer")),
	}, nil
}

func (s *Scorer) Spoilage() *SpoilageEstimator {
	return s.spoilage
}

// Rank scores every eligible candidate and returns matches ordered by score
// descending, then distance ascending, then candidate id. Unavailable
// candidates and candidates out of range are left out.
func (s *Scorer) Rank(req storage.Request, candidates []storage.Candidate, now time.Time) ([]storage.Match, error) {
	if err := req.Location.Validate(); err != nil {
		return nil, err
	}

	risk, err := s.spoilage.Risk(req.FoodCategory, now.Sub(req.CreatedAt).Hours())
	if err != nil {
		return nil, err
	}
	urgencyWeight := s.urgency.Weight(req.Urgency, req.ExpiresAt.Sub(now).Hours())

	matches := make([]storage.Match, 0, len(candidates))
	for _, c := range candidates {
		if !c.Available {
			continue
		}

		distance, err := geo.Distance(req.Location, c.Location)
		if err != nil {
			return nil, fmt.Errorf("candidate %s: %w", c.ID, err)
		}
		if distance > s.cfg.MaxServiceRadiusKm {
			continue
		}
		if c.MaxDistanceKm > 0 && distance > c.MaxDistanceKm {
			continue
		}

		matches = append(matches, storage.Match{
			RequestID:    req.ID,
			CandidateID:  c.ID,
			Role:         c.Role,
			Score:        s.score(distance, urgencyWeight, req.Quantity, c.Capacity),
			DistanceKm:   distance,
			SpoilageRisk: risk,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].CandidateID < matches[j].CandidateID
	})

	s.logger.Debug("candidates ranked",
		zap.String("request_id", req.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("eligible", len(matches)),
		zap.Float64("urgency_weight", urgencyWeight),
		zap.Float64("spoilage_risk", risk),
	)
	return matches, nil
}

func (s *Scorer) score(distance, urgencyWeight, quantity, capacity float64) float64 {
	w := s.cfg.Weights
	proximity := ProximityFactor(distance, s.cfg.MaxServiceRadiusKm)
	mismatch := CapacityMismatch(quantity, capacity)
	return 100 * (w.Proximity*proximity + w.Urgency*urgencyWeight + w.Capacity*(1-mismatch))
}

func ProximityFactor(distanceKm, radiusKm float64) float64 {
	return math.Max(0, 1-distanceKm/radiusKm)
}

// CapacityMismatch is |q-c| / max(q,c), zero when both are zero.
func CapacityMismatch(quantity, capacity float64) float64 {
	m := math.Max(quantity, capacity)
	if m <= 0 {
		return 0
	}
	return math.Abs(quantity-capacity) / m
}
