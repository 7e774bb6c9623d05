package leaderboard

import (
	"time"

	"github.com/smartplate/redistribution/internal/storage"
)

// BadgeRule awards Tier once a user's cumulative meals reach Meals.
type BadgeRule struct {
	Tier  storage.BadgeTier
	Name  string
	Meals float64
}

func DefaultBadgeRules() []BadgeRule {
	return []BadgeRule{
		{Tier: storage.TierBronze, Name: "First Helping", Meals: 10},
		{Tier: storage.TierSilver, Name: "Community Table", Meals: 50},
		{Tier: storage.TierGold, Name: "Hunger Fighter", Meals: 200},
		{Tier: storage.TierPlatinum, Name: "Zero Waste Hero", Meals: 500},
	}
}

// awardBadges returns the badges whose threshold lies in (before, after].
// rules must be sorted by Meals.
func awardBadges(rules []BadgeRule, userID string, before, after float64, at time.Time) []storage.Badge {
	var earned []storage.Badge
	for _, r := range rules {
		if before < r.Meals && after >= r.Meals {
			earned = append(earned, storage.Badge{
				ID:       userID + ":" + string(r.Tier),
				UserID:   userID,
				Tier:     r.Tier,
				Name:     r.Name,
				EarnedAt: at,
			})
		}
	}
	return earned
}
