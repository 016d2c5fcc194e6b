package menu

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"ai-menu-builder/internal/llm"
	"ai-menu-builder/internal/profile"
	"ai-menu-builder/internal/shared"
)

//go:embed template_prompt.md
var templatePromptTemplate string

const templateSystemPrompt = `You are a professional nutritionist who plans daily meal structures. You always answer with a single valid JSON object and nothing else.`

// templateSkeleton is the shape the model answers with. Percentages and
// protein sources come from the model; the numeric targets are computed
// locally from the preferences.
type templateSkeleton struct {
	Meals []struct {
		Meal                     string  `json:"meal"`
		CaloriesPct              float64 `json:"calories_pct"`
		MainProteinSource        string  `json:"main_protein_source"`
		AlternativeProteinSource string  `json:"alternative_protein_source"`
	} `json:"meals"`
}

// TemplateResult is one template generation attempt with its metering.
type TemplateResult struct {
	Template Template
	Meta     shared.AgentMeta
}

// TemplateGenerator asks the model for a meal structure and turns it
// into a concrete template via the macro distributor.
type TemplateGenerator struct {
	textGen llm.TextGenerator
	tmpl    *template.Template
}

func NewTemplateGenerator(textGen llm.TextGenerator) *TemplateGenerator {
	return &TemplateGenerator{
		textGen: textGen,
		tmpl:    template.Must(template.New("template_prompt").Parse(templatePromptTemplate)),
	}
}

// Generate runs one attempt. Feedback from a previously rejected
// attempt is folded into the prompt so the model can correct itself; an
// empty feedback string means a first attempt.
func (g *TemplateGenerator) Generate(ctx context.Context, prefs *profile.Preferences, feedback string) (TemplateResult, error) {
	prompt, err := g.buildPrompt(prefs, feedback)
	if err != nil {
		return TemplateResult{}, fmt.Errorf("failed to build template prompt: %w", err)
	}

	start := time.Now()
	resp, err := g.textGen.GenerateContent(ctx, templateSystemPrompt, prompt)
	if err != nil {
		return TemplateResult{}, fmt.Errorf("template generation request failed: %w", err)
	}
	meta := shared.AgentMeta{
		AgentName: "TemplateGenerator",
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	var skeleton templateSkeleton
	if err := llm.DecodeJSON(resp.Content, &skeleton); err != nil {
		return TemplateResult{Meta: meta}, &GenerationParseError{Stage: "template", Response: resp.Content, Cause: err}
	}
	if len(skeleton.Meals) == 0 {
		return TemplateResult{Meta: meta}, &GenerationParseError{Stage: "template", Response: resp.Content, Cause: errors.New("no meals in response")}
	}

	structure := make([]MealStructureEntry, 0, len(skeleton.Meals))
	for _, meal := range skeleton.Meals {
		structure = append(structure, MealStructureEntry{Meal: meal.Meal, CaloriesPct: meal.CaloriesPct})
	}
	tpl := DistributeTemplate(prefs.CaloriesPerDay, prefs.DailyProtein(), prefs.DailyFat(), structure)
	for i, meal := range skeleton.Meals {
		tpl[i].Main.MainProteinSource = strings.TrimSpace(meal.MainProteinSource)
		tpl[i].Alternative.MainProteinSource = strings.TrimSpace(meal.AlternativeProteinSource)
	}
	return TemplateResult{Template: tpl, Meta: meta}, nil
}

func (g *TemplateGenerator) buildPrompt(prefs *profile.Preferences, feedback string) (string, error) {
	structureHint := ""
	if len(prefs.MealPlanStructure) > 0 {
		raw, err := json.Marshal(prefs.MealPlanStructure)
		if err == nil {
			structureHint = string(raw)
		}
	}
	data := struct {
		CaloriesPerDay float64
		Protein        float64
		Fat            float64
		Carbs          float64
		MealCount      int
		Region         string
		Allergies      string
		Limitations    string
		Structure      string
		Feedback       string
	}{
		CaloriesPerDay: prefs.CaloriesPerDay,
		Protein:        prefs.DailyProtein(),
		Fat:            prefs.DailyFat(),
		Carbs:          prefs.DailyCarbs(),
		MealCount:      prefs.MealCount,
		Region:         prefs.Region,
		Allergies:      strings.Join(prefs.Allergies, ", "),
		Limitations:    strings.Join(prefs.Limitations, ", "),
		Structure:      structureHint,
		Feedback:       feedback,
	}
	var sb strings.Builder
	if err := g.tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
