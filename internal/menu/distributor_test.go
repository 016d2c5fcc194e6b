package menu

import (
	"math"
	"testing"
)

func TestDistributeTemplate(t *testing.T) {
	structure := []MealStructureEntry{
		{Meal: "Breakfast", CaloriesPct: 25},
		{Meal: "Lunch", CaloriesPct: 35},
		{Meal: "Snack", CaloriesPct: 10},
		{Meal: "Dinner", CaloriesPct: 30},
	}
	tpl := DistributeTemplate(1800, 140, 60, structure)
	if len(tpl) != 4 {
		t.Fatalf("expected 4 meals, got %d", len(tpl))
	}
	if tpl[0].Main.Calories != 450 {
		t.Errorf("expected 450 kcal for 25%% of 1800, got %v", tpl[0].Main.Calories)
	}
	if tpl[1].Main.Protein != 49 {
		t.Errorf("expected 49g protein for 35%% of 140, got %v", tpl[1].Main.Protein)
	}
	if tpl[2].Main.Fat != 6 {
		t.Errorf("expected 6g fat for 10%% of 60, got %v", tpl[2].Main.Fat)
	}
	for _, meal := range tpl {
		if meal.Main != meal.Alternative {
			t.Errorf("meal %q: main and alternative must start identical", meal.Meal)
		}
	}
}

func TestDistributeTemplateWholeNumbers(t *testing.T) {
	structure := []MealStructureEntry{
		{Meal: "Breakfast", CaloriesPct: 33.3},
		{Meal: "Lunch", CaloriesPct: 33.3},
		{Meal: "Dinner", CaloriesPct: 33.4},
	}
	tpl := DistributeTemplate(1735, 143, 57, structure)
	for _, meal := range tpl {
		for name, v := range map[string]float64{
			"calories": meal.Main.Calories,
			"protein":  meal.Main.Protein,
			"fat":      meal.Main.Fat,
		} {
			if v != math.Trunc(v) {
				t.Errorf("meal %q %s is not a whole number: %v", meal.Meal, name, v)
			}
		}
	}
}

// With percentages summing to 100 the rounding error of the day total
// stays below one unit per meal.
func TestDistributeTemplateSumBound(t *testing.T) {
	structure := []MealStructureEntry{
		{Meal: "Breakfast", CaloriesPct: 24.5},
		{Meal: "Lunch", CaloriesPct: 33.5},
		{Meal: "Snack", CaloriesPct: 11.5},
		{Meal: "Dinner", CaloriesPct: 30.5},
	}
	daily := map[string]float64{"calories": 1843, "protein": 141, "fat": 59}
	tpl := DistributeTemplate(daily["calories"], daily["protein"], daily["fat"], structure)

	totals := templateTotals(tpl, false)
	bound := float64(len(structure))
	for name, total := range map[string]float64{
		"calories": totals.Calories,
		"protein":  totals.Protein,
		"fat":      totals.Fat,
	} {
		if diff := math.Abs(total - daily[name]); diff > bound {
			t.Errorf("%s total %v drifts %v from daily %v, more than %v", name, total, diff, daily[name], bound)
		}
	}
}

func TestDistributeTemplateEmptyStructure(t *testing.T) {
	tpl := DistributeTemplate(1800, 140, 60, nil)
	if len(tpl) != 0 {
		t.Fatalf("expected empty template, got %d meals", len(tpl))
	}
}
