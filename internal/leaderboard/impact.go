package leaderboard

import "github.com/smartplate/redistribution/internal/storage"

const (
	CO2PerMealKg   = 2.5
	WastePerMealKg = 0.4
)

type Impact struct {
	MealsSaved           float64 `json:"meals_saved"`
	CO2ReducedKg         float64 `json:"co2_reduced_kg"`
	FoodWastePreventedKg float64 `json:"food_waste_prevented_kg"`
	CompletedRequests    int     `json:"completed_requests"`
	ActiveDonors         int     `json:"active_donors"`
	ActiveVolunteers     int     `json:"active_volunteers"`
}

// Impact totals the applied contributions. Each completed request counts its
// meals once even though both its donor and volunteer are credited.
func (a *Aggregator) Impact() Impact {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out Impact
	for _, meals := range a.state.requests {
		out.MealsSaved += meals
	}
	out.CompletedRequests = len(a.state.requests)
	for _, u := range a.state.users {
		switch u.entry.Role {
		case storage.RoleDonor:
			out.ActiveDonors++
		case storage.RoleVolunteer:
			out.ActiveVolunteers++
		}
	}
	out.CO2ReducedKg = out.MealsSaved * CO2PerMealKg
	out.FoodWastePreventedKg = out.MealsSaved * WastePerMealKg
	return out
}
