package menu

import "math"

// DistributeTemplate splits the daily calorie, protein and fat budgets
// across the given meal structure. Each meal receives
// round(daily * calories_pct / 100) of every metric, so per-meal values
// are whole numbers and the day total lands within one unit per meal of
// the daily figure. Main and alternative start out identical; callers
// attach protein sources afterwards.
func DistributeTemplate(dailyCalories, dailyProtein, dailyFat float64, structure []MealStructureEntry) Template {
	tpl := make(Template, 0, len(structure))
	for _, entry := range structure {
		target := MacroTarget{
			Calories: roundShare(dailyCalories, entry.CaloriesPct),
			Protein:  roundShare(dailyProtein, entry.CaloriesPct),
			Fat:      roundShare(dailyFat, entry.CaloriesPct),
		}
		tpl = append(tpl, TemplateMeal{
			Meal:        entry.Meal,
			Main:        target,
			Alternative: target,
		})
	}
	return tpl
}

func roundShare(daily, pct float64) float64 {
	return math.Round(daily * pct / 100)
}
