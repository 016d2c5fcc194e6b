package menu

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"ai-menu-builder/internal/llm"
	"ai-menu-builder/internal/profile"
	"ai-menu-builder/internal/shared"
)

//go:embed option_prompt.md
var optionPromptTemplate string

const optionSystemPrompt = `You are a professional nutritionist who composes single dishes from real supermarket ingredients with accurate nutrition values. You always answer with a single valid JSON object and nothing else.`

// AttemptRecorder receives the raw payload of every rejected generation
// attempt for offline diagnosis. Implementations must not block the
// pipeline; recording problems are theirs to swallow.
type AttemptRecorder interface {
	RecordRejected(stage string, attempt int, payload string, issues []string)
}

// OptionRequest describes the single option the builder must produce.
type OptionRequest struct {
	Kind             string // "main" or "alternative"
	MealName         string
	Target           MacroTarget
	ProteinSource    string
	AvoidProteins    []string
	AvoidIngredients []string
}

// Builder turns one macro target into an accepted dish. Every attempt
// uses the same prompt; a rejected candidate is thrown away rather than
// argued with, because regenerating from a clean prompt converges at
// least as fast as explaining JSON errors to the model.
type Builder struct {
	textGen        llm.TextGenerator
	recorder       AttemptRecorder
	logger         *zap.Logger
	attempts       int
	maxIngredients int
	tmpl           *template.Template
}

func NewBuilder(textGen llm.TextGenerator, recorder AttemptRecorder, logger *zap.Logger, opts Options) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Builder{
		textGen:        textGen,
		recorder:       recorder,
		logger:         logger,
		attempts:       opts.OptionAttempts,
		maxIngredients: opts.MaxIngredients,
		tmpl:           template.Must(template.New("option_prompt").Parse(optionPromptTemplate)),
	}
}

// BuildOption generates candidates until one passes validation or the
// attempt budget runs out. Parse failures and rejected candidates both
// consume an attempt. On exhaustion the returned error is a
// BuildExhausted carrying the last rejection's issues.
func (b *Builder) BuildOption(ctx context.Context, req OptionRequest, prefs *profile.Preferences) (BuiltOption, []shared.AgentMeta, error) {
	prompt, err := b.buildPrompt(req, prefs)
	if err != nil {
		return BuiltOption{}, nil, fmt.Errorf("failed to build option prompt: %w", err)
	}

	var metas []shared.AgentMeta
	lastIssues := []string{}
	for attempt := 1; attempt <= b.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return BuiltOption{}, metas, err
		}
		start := time.Now()
		resp, err := b.textGen.GenerateContent(ctx, optionSystemPrompt, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return BuiltOption{}, metas, ctx.Err()
			}
			lastIssues = []string{fmt.Sprintf("generation request failed: %v", err)}
			b.logger.Warn("option generation request failed",
				zap.String("meal", req.MealName),
				zap.String("kind", req.Kind),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		metas = append(metas, shared.AgentMeta{
			AgentName: "OptionBuilder",
			Usage:     resp.Usage,
			Latency:   time.Since(start),
		})

		var candidate BuiltOption
		if err := llm.DecodeJSON(resp.Content, &candidate); err != nil {
			lastIssues = []string{fmt.Sprintf("response was not valid JSON: %v", err)}
			b.record("option", attempt, resp.Content, lastIssues)
			b.logger.Warn("option response unparsable",
				zap.String("meal", req.MealName),
				zap.String("kind", req.Kind),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		candidate.MealName = req.MealName
		if candidate.Nutrition == (MacroTotals{}) && len(candidate.Ingredients) > 0 {
			candidate.Nutrition = SumIngredients(candidate.Ingredients)
		}

		issues := b.acceptanceIssues(req, candidate, prefs)
		if len(issues) > 0 {
			lastIssues = issues
			b.record("option", attempt, resp.Content, issues)
			b.logger.Info("option rejected",
				zap.String("meal", req.MealName),
				zap.String("kind", req.Kind),
				zap.Int("attempt", attempt),
				zap.Strings("issues", issues))
			continue
		}
		b.logger.Info("option accepted",
			zap.String("meal", req.MealName),
			zap.String("kind", req.Kind),
			zap.Int("attempt", attempt),
			zap.String("title", candidate.MealTitle))
		return candidate, metas, nil
	}
	return BuiltOption{}, metas, &BuildExhausted{
		Stage:      "option",
		MealName:   req.MealName,
		OptionKind: req.Kind,
		Attempts:   b.attempts,
		LastIssues: lastIssues,
		Target:     req.Target,
	}
}

func (b *Builder) acceptanceIssues(req OptionRequest, candidate BuiltOption, prefs *profile.Preferences) []string {
	issues := []string{}
	if len(candidate.Ingredients) == 0 {
		issues = append(issues, "option has no ingredients")
	}
	if len(candidate.Ingredients) > b.maxIngredients {
		issues = append(issues, fmt.Sprintf("option has %d ingredients, at most %d are allowed",
			len(candidate.Ingredients), b.maxIngredients))
	}
	report := ValidateOption(req.Target, candidate, prefs)
	return append(issues, report.Issues...)
}

func (b *Builder) record(stage string, attempt int, payload string, issues []string) {
	if b.recorder == nil {
		return
	}
	b.recorder.RecordRejected(stage, attempt, payload, issues)
}

func (b *Builder) buildPrompt(req OptionRequest, prefs *profile.Preferences) (string, error) {
	data := struct {
		Kind             string
		MealName         string
		Calories         float64
		Protein          float64
		Fat              float64
		Carbs            float64
		ProteinSource    string
		Region           string
		Allergies        string
		Limitations      string
		AvoidProteins    string
		AvoidIngredients string
		MaxIngredients   int
	}{
		Kind:             req.Kind,
		MealName:         req.MealName,
		Calories:         req.Target.Calories,
		Protein:          req.Target.Protein,
		Fat:              req.Target.Fat,
		Carbs:            req.Target.Carbs,
		ProteinSource:    req.ProteinSource,
		Region:           prefs.Region,
		Allergies:        strings.Join(prefs.Allergies, ", "),
		Limitations:      strings.Join(prefs.Limitations, ", "),
		AvoidProteins:    strings.Join(req.AvoidProteins, ", "),
		AvoidIngredients: strings.Join(req.AvoidIngredients, ", "),
		MaxIngredients:   b.maxIngredients,
	}
	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
