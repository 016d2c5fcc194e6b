package profile

import "strings"

// Preferences is the canonical user profile consumed read-only by every
// pipeline component. It is constructed fresh per request by the Loader
// and never mutated afterwards.
type Preferences struct {
	CaloriesPerDay    float64
	Macros            map[string]float64 // protein/fat/carbs in grams
	Allergies         []string
	Limitations       []string
	MealCount         int
	Region            string
	ClientPreference  map[string]any
	MealPlanStructure map[string]any
}

// DefaultPreferences returns the hardcoded fallback profile used when no
// record can be resolved.
func DefaultPreferences() *Preferences {
	return &Preferences{
		CaloriesPerDay: 1800,
		Macros: map[string]float64{
			"protein": 140,
			"fat":     60,
			"carbs":   160,
		},
		MealCount: 4,
		Region:    "israel",
	}
}

// DailyProtein returns the daily protein target in grams.
func (p *Preferences) DailyProtein() float64 { return p.Macros["protein"] }

// DailyFat returns the daily fat target in grams.
func (p *Preferences) DailyFat() float64 { return p.Macros["fat"] }

// DailyCarbs returns the daily carbs target in grams.
func (p *Preferences) DailyCarbs() float64 { return p.Macros["carbs"] }

// HasLimitation reports whether the named dietary limitation is present,
// matched case-insensitively.
func (p *Preferences) HasLimitation(name string) bool {
	for _, l := range p.Limitations {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}
