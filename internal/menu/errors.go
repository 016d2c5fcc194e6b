package menu

import (
	"fmt"
	"strings"
)

// GenerationParseError reports model output that could not be decoded
// into the expected structure. The attempt that produced it is spent,
// but the surrounding loop keeps going.
type GenerationParseError struct {
	Stage    string // "template" or "option"
	Response string
	Cause    error
}

func (e *GenerationParseError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v. Response: %s", e.Stage, e.Cause, truncateForLog(e.Response))
}

func (e *GenerationParseError) Unwrap() error { return e.Cause }

// BuildExhausted reports that a retry ceiling was reached without an
// acceptable result. Stage is "template", "option" or "menu". For the
// template stage Report holds the last validation report; for option
// and menu stages MealName, OptionKind and Target identify the slot
// that would not converge.
type BuildExhausted struct {
	Stage      string
	MealName   string
	OptionKind string
	Attempts   int
	LastIssues []string
	Target     MacroTarget
	Report     *TemplateReport
}

func (e *BuildExhausted) Error() string {
	switch e.Stage {
	case "template":
		return fmt.Sprintf("failed to generate a valid template after %d attempts: %s", e.Attempts, strings.Join(e.LastIssues, "; "))
	case "option":
		return fmt.Sprintf("failed to build %s option for meal %q after %d attempts: %s", e.OptionKind, e.MealName, e.Attempts, strings.Join(e.LastIssues, "; "))
	default:
		return fmt.Sprintf("failed to build menu after %d attempts, last failure on %s option of meal %q: %s", e.Attempts, e.OptionKind, e.MealName, strings.Join(e.LastIssues, "; "))
	}
}

func truncateForLog(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
