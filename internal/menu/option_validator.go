package menu

import (
	"fmt"
	"math"
	"strings"

	"ai-menu-builder/internal/profile"
)

// kosherLimitation is the preference token that switches the lexical
// kosher check on.
const kosherLimitation = "kosher"

var meatTerms = []string{
	"chicken", "beef", "lamb", "turkey", "duck", "veal", "goose",
	"steak", "schnitzel", "pastrami", "salami", "sausage", "kebab",
	"shawarma", "liver", "meatball", "meat",
}

var dairyTerms = []string{
	"milk", "cheese", "butter", "yogurt", "yoghurt", "cream", "labneh",
	"cottage", "mozzarella", "parmesan", "feta", "ricotta", "kefir",
	"dairy",
}

var forbiddenTerms = []string{
	"pork", "bacon", "ham", "shrimp", "prawn", "lobster", "crab",
	"squid", "octopus", "oyster", "mussel", "clam", "scallop",
	"shellfish", "eel", "catfish",
}

// marginFor returns the allowed relative deviation for a target value.
// Small targets get a wider band because a single ingredient swing
// moves them proportionally more.
func marginFor(target float64) float64 {
	switch {
	case target <= 10:
		return 0.6
	case target <= 20:
		return 0.5
	case target <= 30:
		return 0.4
	default:
		return 0.3
	}
}

// ValidateOption checks one built option against its macro target and
// the preference-driven dietary rules. Metrics whose target is zero are
// skipped. Each out-of-band metric yields one issue naming the
// direction to move in.
func ValidateOption(target MacroTarget, opt BuiltOption, prefs *profile.Preferences) ValidationReport {
	issues := []string{}
	for _, m := range []struct {
		name           string
		actual, target float64
	}{
		{"calories", opt.Nutrition.Calories, target.Calories},
		{"protein", opt.Nutrition.Protein, target.Protein},
		{"fat", opt.Nutrition.Fat, target.Fat},
		{"carbs", opt.Nutrition.Carbs, target.Carbs},
	} {
		if m.target == 0 {
			continue
		}
		margin := marginFor(m.target)
		deviation := (m.actual - m.target) / m.target
		if math.Abs(deviation) <= margin {
			continue
		}
		direction := "Increase"
		if deviation > 0 {
			direction = "Reduce"
		}
		issues = append(issues, fmt.Sprintf(
			"%s %s: got %.1f vs target %.1f, deviation %.1f%% exceeds the %.0f%% margin",
			direction, m.name, m.actual, m.target,
			math.Abs(deviation)*100, margin*100))
	}
	if prefs != nil && prefs.HasLimitation(kosherLimitation) {
		issues = append(issues, kosherIssues(opt.Ingredients)...)
	}
	return ValidationReport{IsValid: len(issues) == 0, Issues: issues}
}

// kosherIssues scans ingredient names for forbidden foods and for meat
// and dairy appearing in the same option. Matching is a plain
// case-insensitive substring check over a fixed vocabulary, so it
// catches "Cottage Cheese 250g" but also misses anything the
// vocabulary does not name.
func kosherIssues(ingredients []Ingredient) []string {
	issues := []string{}
	var meatItems, dairyItems []string
	for _, ing := range ingredients {
		name := strings.ToLower(ing.Item)
		for _, term := range forbiddenTerms {
			if strings.Contains(name, term) {
				issues = append(issues, fmt.Sprintf(
					"ingredient %q is not kosher (%s)", ing.Item, term))
			}
		}
		if matchesAny(name, meatTerms) {
			meatItems = append(meatItems, ing.Item)
		}
		if matchesAny(name, dairyTerms) {
			dairyItems = append(dairyItems, ing.Item)
		}
	}
	if len(meatItems) > 0 && len(dairyItems) > 0 {
		issues = append(issues, fmt.Sprintf(
			"meat and dairy must not be mixed: meat (%s) with dairy (%s)",
			strings.Join(meatItems, ", "), strings.Join(dairyItems, ", ")))
	}
	return issues
}

func matchesAny(name string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(name, term) {
			return true
		}
	}
	return false
}

// ValidateMenu checks a finished menu against the template it was built
// from. Meals are paired by name; every option is checked against its
// target and all issues are flattened into a single report with the
// meal and track prefixed.
func ValidateMenu(t Template, m Menu, prefs *profile.Preferences) ValidationReport {
	issues := []string{}
	byName := make(map[string]MenuMeal, len(m))
	for _, meal := range m {
		byName[strings.ToLower(meal.Meal)] = meal
	}
	seen := make(map[string]bool, len(t))
	for _, tplMeal := range t {
		key := strings.ToLower(tplMeal.Meal)
		seen[key] = true
		menuMeal, ok := byName[key]
		if !ok {
			issues = append(issues, fmt.Sprintf("menu is missing meal %q", tplMeal.Meal))
			continue
		}
		for _, report := range []struct {
			track  string
			result ValidationReport
		}{
			{"main", ValidateOption(tplMeal.Main, menuMeal.Main, prefs)},
			{"alternative", ValidateOption(tplMeal.Alternative, menuMeal.Alternative, prefs)},
		} {
			for _, issue := range report.result.Issues {
				issues = append(issues, fmt.Sprintf("%s (%s): %s", tplMeal.Meal, report.track, issue))
			}
		}
	}
	for _, meal := range m {
		if !seen[strings.ToLower(meal.Meal)] {
			issues = append(issues, fmt.Sprintf("menu contains meal %q that is not in the template", meal.Meal))
		}
	}
	return ValidationReport{IsValid: len(issues) == 0, Issues: issues}
}
