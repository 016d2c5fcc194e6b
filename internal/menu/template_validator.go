package menu

import (
	"fmt"
	"math"
	"strings"

	"ai-menu-builder/internal/profile"
)

// templateTolerance is the allowed relative deviation of each summed
// track from the daily target.
const templateTolerance = 0.05

// ValidateTemplate checks a template against the daily targets derived
// from the preferences. Four independent channels are reported: the
// main track's deviation from the targets, the alternative track's
// deviation, equality between the two tracks, and protein-source
// similarity within each meal. The report always carries the summed
// totals and the targets so callers can show the numbers behind a
// verdict.
func ValidateTemplate(t Template, prefs *profile.Preferences) TemplateReport {
	targets := MacroTotals{
		Calories: prefs.CaloriesPerDay,
		Protein:  prefs.DailyProtein(),
		Fat:      prefs.DailyFat(),
	}
	totalsMain := templateTotals(t, false)
	totalsAlt := templateTotals(t, true)

	report := TemplateReport{
		IssuesMain:       trackIssues("main", totalsMain, targets),
		IssuesAlt:        trackIssues("alternative", totalsAlt, targets),
		IssuesMainAlt:    equalityIssues(totalsMain, totalsAlt),
		IssuesSimilarity: similarityIssues(t),
		TotalsMain:       totalsMain,
		TotalsAlt:        totalsAlt,
		Targets:          targets,
	}
	report.IsValidMain = len(report.IssuesMain) == 0
	report.IsValidAlt = len(report.IssuesAlt) == 0
	report.IsValidSimilarity = len(report.IssuesSimilarity) == 0
	report.IsValid = report.IsValidMain && report.IsValidAlt &&
		report.IsValidSimilarity && len(report.IssuesMainAlt) == 0
	return report
}

// trackIssues compares one track's totals against the daily targets.
// Metrics with a zero target are skipped since a relative deviation is
// undefined there.
func trackIssues(track string, totals, targets MacroTotals) []string {
	issues := []string{}
	for _, m := range []struct {
		name           string
		actual, target float64
	}{
		{"calories", totals.Calories, targets.Calories},
		{"protein", totals.Protein, targets.Protein},
		{"fat", totals.Fat, targets.Fat},
	} {
		if m.target <= 0 {
			continue
		}
		deviation := (m.actual - m.target) / m.target
		if math.Abs(deviation) > templateTolerance {
			issues = append(issues, fmt.Sprintf(
				"%s track %s is off target: total %.1f vs target %.1f, deviation %+.3f%%",
				track, m.name, m.actual, m.target, deviation*100))
		}
	}
	return issues
}

// equalityIssues requires the two tracks to match metric by metric
// after rounding to one decimal place.
func equalityIssues(totalsMain, totalsAlt MacroTotals) []string {
	issues := []string{}
	for _, m := range []struct {
		name      string
		main, alt float64
	}{
		{"calories", totalsMain.Calories, totalsAlt.Calories},
		{"protein", totalsMain.Protein, totalsAlt.Protein},
		{"fat", totalsMain.Fat, totalsAlt.Fat},
	} {
		main := round1(m.main)
		alt := round1(m.alt)
		if main != alt {
			issues = append(issues, fmt.Sprintf(
				"%s totals differ between main and alternative: %.1f vs %.1f",
				m.name, main, alt))
		}
	}
	return issues
}

// similarityIssues flags meals whose two options share a main protein
// source. The comparison is case-insensitive and skips meals where
// either source is empty.
func similarityIssues(t Template) []string {
	issues := []string{}
	for _, meal := range t {
		main := strings.TrimSpace(meal.Main.MainProteinSource)
		alt := strings.TrimSpace(meal.Alternative.MainProteinSource)
		if main == "" || alt == "" {
			continue
		}
		if strings.EqualFold(main, alt) {
			issues = append(issues, fmt.Sprintf(
				"meal %q uses the same main protein source for both options: %s",
				meal.Meal, main))
		}
	}
	return issues
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
