package menu

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-menu-builder/internal/profile"
)

func singleMealTemplate() Template {
	tpl := DistributeTemplate(1800, 140, 60, []MealStructureEntry{{Meal: "Day", CaloriesPct: 100}})
	tpl[0].Main.MainProteinSource = "eggs"
	tpl[0].Alternative.MainProteinSource = "tofu"
	return tpl
}

func TestOrchestratorRunFullPipeline(t *testing.T) {
	prefs := profile.DefaultPreferences()
	skeleton := skeletonJSON(t,
		map[string]any{"meal": "Breakfast", "calories_pct": 60, "main_protein_source": "eggs", "alternative_protein_source": "tofu"},
		map[string]any{"meal": "Dinner", "calories_pct": 40, "main_protein_source": "chicken breast", "alternative_protein_source": "salmon"},
	)
	breakfastTarget := MacroTarget{Calories: 1080, Protein: 84, Fat: 36}
	dinnerTarget := MacroTarget{Calories: 720, Protein: 56, Fat: 24}
	stub := &stubTextGen{responses: []string{
		skeleton,
		optionJSON(t, "Breakfast", "Cottage bowl", breakfastTarget, Ingredient{
			Item: "Tnuva Cottage 5%", Brand: "Tnuva", PortionGrams: 250,
			Calories: 1080, Protein: 84, Fat: 36,
		}),
		optionJSON(t, "Breakfast", "Tofu scramble", breakfastTarget),
		optionJSON(t, "Dinner", "Chicken and rice", dinnerTarget),
		optionJSON(t, "Dinner", "Baked salmon", dinnerTarget),
	}}
	orch := NewOrchestrator(stub, nil, nil, Options{})

	result, metas, err := orch.Run(context.Background(), nil, prefs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Menu) != 2 {
		t.Fatalf("expected 2 meals, got %d", len(result.Menu))
	}
	if result.Menu[0].Meal != "Breakfast" || result.Menu[1].Meal != "Dinner" {
		t.Errorf("meals out of order: %q, %q", result.Menu[0].Meal, result.Menu[1].Meal)
	}
	if got := result.Menu[0].Main.Ingredients[0].Item; got != "Cottage 5%" {
		t.Errorf("ingredient names should be cleaned once at the end, got %q", got)
	}
	if result.TotalsMain.Calories != 1800 || result.TotalsMain.Protein != 140 || result.TotalsMain.Fat != 60 {
		t.Errorf("unexpected main totals: %+v", result.TotalsMain)
	}
	if result.TotalsAlt.Calories != 1800 {
		t.Errorf("unexpected alternative totals: %+v", result.TotalsAlt)
	}
	if stub.callCount() != 5 {
		t.Errorf("expected 1 template and 4 option calls, got %d", stub.callCount())
	}
	if len(metas) != 5 {
		t.Errorf("every model call should be metered, got %d metas", len(metas))
	}
}

func TestOrchestratorTemplateExhaustion(t *testing.T) {
	stub := &stubTextGen{responses: []string{"I would rather not answer in JSON."}}
	orch := NewOrchestrator(stub, nil, nil, Options{})

	_, _, err := orch.Run(context.Background(), nil, profile.DefaultPreferences())
	var exhausted *BuildExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected BuildExhausted, got %v", err)
	}
	if exhausted.Stage != "template" {
		t.Errorf("expected stage template, got %q", exhausted.Stage)
	}
	if exhausted.Attempts != 4 {
		t.Errorf("expected the default 4 attempts, got %d", exhausted.Attempts)
	}
	if stub.callCount() != 4 {
		t.Errorf("no option calls may happen without a template, got %d calls", stub.callCount())
	}
}

func TestOrchestratorThreadsTemplateFeedback(t *testing.T) {
	short := skeletonJSON(t,
		map[string]any{"meal": "Breakfast", "calories_pct": 50, "main_protein_source": "eggs", "alternative_protein_source": "tofu"},
		map[string]any{"meal": "Dinner", "calories_pct": 30, "main_protein_source": "chicken breast", "alternative_protein_source": "salmon"},
	)
	good := skeletonJSON(t,
		map[string]any{"meal": "Breakfast", "calories_pct": 60, "main_protein_source": "eggs", "alternative_protein_source": "tofu"},
		map[string]any{"meal": "Dinner", "calories_pct": 40, "main_protein_source": "chicken breast", "alternative_protein_source": "salmon"},
	)
	recorder := &recorderStub{}
	stub := &stubTextGen{responses: []string{short, good}}
	orch := NewOrchestrator(stub, recorder, nil, Options{})

	tpl, _, err := orch.GenerateTemplate(context.Background(), profile.DefaultPreferences())
	if err != nil {
		t.Fatalf("GenerateTemplate failed: %v", err)
	}
	if len(tpl) != 2 {
		t.Fatalf("expected 2 meals, got %d", len(tpl))
	}
	if stub.callCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", stub.callCount())
	}
	second := stub.prompt(1)
	if !strings.Contains(second, "-20.000%") {
		t.Errorf("second prompt should carry the rejection feedback, got:\n%s", second)
	}
	if recorder.count("template") != 1 {
		t.Errorf("the rejected template should be recorded, got %d", recorder.count("template"))
	}
}

func TestOrchestratorRetriesMenuBuild(t *testing.T) {
	tpl := singleMealTemplate()
	target := tpl[0].Main
	stub := &stubTextGen{responses: []string{
		"garbage that fails the only option attempt",
		optionJSON(t, "Day", "Egg platter", target),
		optionJSON(t, "Day", "Tofu platter", target),
	}}
	orch := NewOrchestrator(stub, nil, nil, Options{MenuAttempts: 4, OptionAttempts: 1})

	result, _, err := orch.BuildMenu(context.Background(), tpl, profile.DefaultPreferences())
	if err != nil {
		t.Fatalf("BuildMenu failed: %v", err)
	}
	if len(result.Menu) != 1 {
		t.Fatalf("expected 1 meal, got %d", len(result.Menu))
	}
	if stub.callCount() != 3 {
		t.Errorf("expected a failed attempt and a clean second one, got %d calls", stub.callCount())
	}
}

func TestOrchestratorMenuExhaustion(t *testing.T) {
	tpl := singleMealTemplate()
	stub := &stubTextGen{responses: []string{"never valid"}}
	orch := NewOrchestrator(stub, nil, nil, Options{MenuAttempts: 2, OptionAttempts: 2})

	_, _, err := orch.BuildMenu(context.Background(), tpl, profile.DefaultPreferences())
	var exhausted *BuildExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected BuildExhausted, got %v", err)
	}
	if exhausted.Stage != "menu" {
		t.Errorf("expected stage menu, got %q", exhausted.Stage)
	}
	if exhausted.Attempts != 2 {
		t.Errorf("expected 2 menu attempts, got %d", exhausted.Attempts)
	}
	if exhausted.MealName != "Day" || exhausted.OptionKind != "main" {
		t.Errorf("exhaustion should identify the failing slot, got %+v", exhausted)
	}
	if stub.callCount() != 4 {
		t.Errorf("expected 2 menu attempts of 2 option attempts each, got %d calls", stub.callCount())
	}
}

func TestOrchestratorRegeneratesInvalidTemplate(t *testing.T) {
	// Only half the day is covered, so the provided template cannot pass.
	half := DistributeTemplate(1800, 140, 60, []MealStructureEntry{{Meal: "Day", CaloriesPct: 50}})
	half[0].Main.MainProteinSource = "eggs"
	half[0].Alternative.MainProteinSource = "tofu"

	fullTarget := MacroTarget{Calories: 1800, Protein: 140, Fat: 60}
	stub := &stubTextGen{responses: []string{
		skeletonJSON(t, map[string]any{"meal": "Day", "calories_pct": 100, "main_protein_source": "eggs", "alternative_protein_source": "tofu"}),
		optionJSON(t, "Day", "Egg platter", fullTarget),
		optionJSON(t, "Day", "Tofu platter", fullTarget),
	}}
	orch := NewOrchestrator(stub, nil, nil, Options{})

	result, _, err := orch.BuildMenu(context.Background(), half, profile.DefaultPreferences())
	if err != nil {
		t.Fatalf("BuildMenu failed: %v", err)
	}
	if result.TotalsMain.Calories != 1800 {
		t.Errorf("menu should be built from the regenerated template, got %+v", result.TotalsMain)
	}
	if stub.callCount() != 3 {
		t.Errorf("expected 1 regeneration and 2 option calls, got %d", stub.callCount())
	}
}

func TestOrchestratorContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub := &stubTextGen{responses: []string{"unused"}}
	orch := NewOrchestrator(stub, nil, nil, Options{})

	_, _, err := orch.Run(ctx, nil, profile.DefaultPreferences())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stub.callCount() != 0 {
		t.Errorf("no model calls after cancellation, got %d", stub.callCount())
	}
}
