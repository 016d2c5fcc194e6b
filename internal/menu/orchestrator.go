package menu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ai-menu-builder/internal/llm"
	"ai-menu-builder/internal/profile"
	"ai-menu-builder/internal/shared"
)

// Options are the retry ceilings and caps of one pipeline instance.
// Zero values fall back to the defaults, so callers can override a
// single knob.
type Options struct {
	TemplateAttempts int
	MenuAttempts     int
	OptionAttempts   int
	MaxIngredients   int
}

func DefaultOptions() Options {
	return Options{
		TemplateAttempts: 4,
		MenuAttempts:     4,
		OptionAttempts:   6,
		MaxIngredients:   7,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TemplateAttempts <= 0 {
		o.TemplateAttempts = def.TemplateAttempts
	}
	if o.MenuAttempts <= 0 {
		o.MenuAttempts = def.MenuAttempts
	}
	if o.OptionAttempts <= 0 {
		o.OptionAttempts = def.OptionAttempts
	}
	if o.MaxIngredients <= 0 {
		o.MaxIngredients = def.MaxIngredients
	}
	return o
}

// BuildResult is a finished day with both tracks summed.
type BuildResult struct {
	Menu       Menu        `json:"menu"`
	TotalsMain MacroTotals `json:"totals_main"`
	TotalsAlt  MacroTotals `json:"totals_alt"`
}

// Orchestrator drives the whole template-generate-validate-build
// pipeline. Template generation and menu building carry independent
// attempt budgets; meals are built strictly one after another and the
// first option that cannot be built fails the attempt, never leaving a
// gap in the menu.
type Orchestrator struct {
	generator *TemplateGenerator
	builder   *Builder
	recorder  AttemptRecorder
	logger    *zap.Logger
	opts      Options
}

func NewOrchestrator(textGen llm.TextGenerator, recorder AttemptRecorder, logger *zap.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Orchestrator{
		generator: NewTemplateGenerator(textGen),
		builder:   NewBuilder(textGen, recorder, logger, opts),
		recorder:  recorder,
		logger:    logger,
		opts:      opts,
	}
}

// Run executes the full pipeline. A nil or empty template means
// generate one first; a caller-supplied template is validated by
// BuildMenu and regenerated if it does not hold up.
func (o *Orchestrator) Run(ctx context.Context, tpl Template, prefs *profile.Preferences) (*BuildResult, []shared.AgentMeta, error) {
	var metas []shared.AgentMeta
	if len(tpl) == 0 {
		generated, genMetas, err := o.GenerateTemplate(ctx, prefs)
		metas = append(metas, genMetas...)
		if err != nil {
			return nil, metas, err
		}
		tpl = generated
	}
	result, buildMetas, err := o.BuildMenu(ctx, tpl, prefs)
	metas = append(metas, buildMetas...)
	return result, metas, err
}

// GenerateTemplate retries generation until a template passes
// validation. Rejection feedback is threaded into the next prompt, the
// only place in the pipeline where the model hears about its failures.
func (o *Orchestrator) GenerateTemplate(ctx context.Context, prefs *profile.Preferences) (Template, []shared.AgentMeta, error) {
	var metas []shared.AgentMeta
	var lastReport *TemplateReport
	lastIssues := []string{}
	feedback := ""
	for attempt := 1; attempt <= o.opts.TemplateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, metas, err
		}
		result, err := o.generator.Generate(ctx, prefs, feedback)
		if result.Meta.AgentName != "" {
			metas = append(metas, result.Meta)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, metas, ctx.Err()
			}
			var parseErr *GenerationParseError
			if errors.As(err, &parseErr) {
				o.record("template", attempt, parseErr.Response, []string{parseErr.Error()})
			}
			lastIssues = []string{err.Error()}
			feedback = fmt.Sprintf("the previous response could not be used: %v", err)
			o.logger.Warn("template attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		report := ValidateTemplate(result.Template, prefs)
		if report.IsValid {
			o.logger.Info("template accepted",
				zap.Int("attempt", attempt),
				zap.Int("meals", len(result.Template)))
			return result.Template, metas, nil
		}
		lastReport = &report
		lastIssues = report.AllIssues()
		feedback = strings.Join(lastIssues, "\n")
		if payload, jsonErr := json.Marshal(result.Template); jsonErr == nil {
			o.record("template", attempt, string(payload), lastIssues)
		}
		o.logger.Info("template rejected",
			zap.Int("attempt", attempt),
			zap.Strings("issues", lastIssues))
	}
	return nil, metas, &BuildExhausted{
		Stage:      "template",
		Attempts:   o.opts.TemplateAttempts,
		LastIssues: lastIssues,
		Report:     lastReport,
	}
}

// BuildMenu builds the full day from a template. An invalid template is
// replaced through the regular generation path before an attempt
// starts. When an attempt dies on an unbuildable option the next one
// starts over from the same template; the options simply rolled badly.
func (o *Orchestrator) BuildMenu(ctx context.Context, tpl Template, prefs *profile.Preferences) (*BuildResult, []shared.AgentMeta, error) {
	var metas []shared.AgentMeta
	var lastErr error
	current := tpl
	for attempt := 1; attempt <= o.opts.MenuAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, metas, err
		}
		if report := ValidateTemplate(current, prefs); !report.IsValid {
			o.logger.Warn("template invalid before build, regenerating",
				zap.Int("attempt", attempt),
				zap.Strings("issues", report.AllIssues()))
			fresh, genMetas, err := o.GenerateTemplate(ctx, prefs)
			metas = append(metas, genMetas...)
			if err != nil {
				return nil, metas, err
			}
			current = fresh
		}

		built, mealMetas, err := o.buildMeals(ctx, current, prefs)
		metas = append(metas, mealMetas...)
		if err == nil {
			cleaned := CleanMenu(built)
			totalsMain, totalsAlt := AggregateTotals(cleaned)
			o.logger.Info("menu built",
				zap.Int("attempt", attempt),
				zap.Int("meals", len(cleaned)),
				zap.Float64("calories_main", totalsMain.Calories))
			return &BuildResult{Menu: cleaned, TotalsMain: totalsMain, TotalsAlt: totalsAlt}, metas, nil
		}
		if ctx.Err() != nil {
			return nil, metas, ctx.Err()
		}
		lastErr = err
		o.logger.Warn("menu attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	var exhausted *BuildExhausted
	if errors.As(lastErr, &exhausted) {
		return nil, metas, &BuildExhausted{
			Stage:      "menu",
			MealName:   exhausted.MealName,
			OptionKind: exhausted.OptionKind,
			Attempts:   o.opts.MenuAttempts,
			LastIssues: exhausted.LastIssues,
			Target:     exhausted.Target,
		}
	}
	return nil, metas, fmt.Errorf("failed to build menu after %d attempts: %w", o.opts.MenuAttempts, lastErr)
}

// buildMeals walks the template in order. The alternative option of a
// meal is built only after its main was accepted, with the main's
// protein source and ingredients passed along as exclusions.
func (o *Orchestrator) buildMeals(ctx context.Context, tpl Template, prefs *profile.Preferences) (Menu, []shared.AgentMeta, error) {
	var metas []shared.AgentMeta
	built := make(Menu, 0, len(tpl))
	for _, meal := range tpl {
		main, mainMetas, err := o.builder.BuildOption(ctx, OptionRequest{
			Kind:          "main",
			MealName:      meal.Meal,
			Target:        meal.Main,
			ProteinSource: meal.Main.MainProteinSource,
		}, prefs)
		metas = append(metas, mainMetas...)
		if err != nil {
			return nil, metas, err
		}

		avoidProteins := []string{}
		if s := strings.TrimSpace(meal.Main.MainProteinSource); s != "" {
			avoidProteins = append(avoidProteins, s)
		}
		avoidIngredients := make([]string, 0, len(main.Ingredients))
		for _, ing := range main.Ingredients {
			if s := strings.TrimSpace(ing.Item); s != "" {
				avoidIngredients = append(avoidIngredients, s)
			}
		}

		alt, altMetas, err := o.builder.BuildOption(ctx, OptionRequest{
			Kind:             "alternative",
			MealName:         meal.Meal,
			Target:           meal.Alternative,
			ProteinSource:    meal.Alternative.MainProteinSource,
			AvoidProteins:    avoidProteins,
			AvoidIngredients: avoidIngredients,
		}, prefs)
		metas = append(metas, altMetas...)
		if err != nil {
			return nil, metas, err
		}

		built = append(built, MenuMeal{Meal: meal.Meal, Main: main, Alternative: alt})
	}
	return built, metas, nil
}

func (o *Orchestrator) record(stage string, attempt int, payload string, issues []string) {
	if o.recorder == nil {
		return
	}
	o.recorder.RecordRejected(stage, attempt, payload, issues)
}
