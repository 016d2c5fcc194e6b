package menu

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"ai-menu-builder/internal/profile"
)

type recorderStub struct {
	mu      sync.Mutex
	entries []struct {
		stage   string
		attempt int
		payload string
		issues  []string
	}
}

func (r *recorderStub) RecordRejected(stage string, attempt int, payload string, issues []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, struct {
		stage   string
		attempt int
		payload string
		issues  []string
	}{stage, attempt, payload, issues})
}

func (r *recorderStub) count(stage string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.stage == stage {
			n++
		}
	}
	return n
}

func lunchRequest() OptionRequest {
	return OptionRequest{
		Kind:          "main",
		MealName:      "Lunch",
		Target:        MacroTarget{Calories: 650, Protein: 45, Fat: 20},
		ProteinSource: "chicken breast",
	}
}

func TestBuildOptionAcceptsFirstValid(t *testing.T) {
	req := lunchRequest()
	stub := &stubTextGen{responses: []string{optionJSON(t, "Lunch", "Chicken and rice", req.Target)}}
	builder := NewBuilder(stub, nil, nil, Options{})

	opt, metas, err := builder.BuildOption(context.Background(), req, profile.DefaultPreferences())
	if err != nil {
		t.Fatalf("BuildOption failed: %v", err)
	}
	if opt.MealTitle != "Chicken and rice" {
		t.Errorf("unexpected title %q", opt.MealTitle)
	}
	if opt.MealName != "Lunch" {
		t.Errorf("meal name should be forced to the request, got %q", opt.MealName)
	}
	if stub.callCount() != 1 {
		t.Errorf("expected 1 call, got %d", stub.callCount())
	}
	if len(metas) != 1 || metas[0].AgentName != "OptionBuilder" {
		t.Errorf("expected one OptionBuilder meta, got %+v", metas)
	}
}

func TestBuildOptionRetriesAfterParseFailure(t *testing.T) {
	req := lunchRequest()
	recorder := &recorderStub{}
	stub := &stubTextGen{responses: []string{
		"Sorry, here is your meal: rice and chicken.",
		optionJSON(t, "Lunch", "Chicken and rice", req.Target),
	}}
	builder := NewBuilder(stub, recorder, nil, Options{})

	opt, metas, err := builder.BuildOption(context.Background(), req, profile.DefaultPreferences())
	if err != nil {
		t.Fatalf("BuildOption failed: %v", err)
	}
	if opt.MealTitle != "Chicken and rice" {
		t.Errorf("unexpected title %q", opt.MealTitle)
	}
	if stub.callCount() != 2 {
		t.Errorf("parse failure must consume an attempt, got %d calls", stub.callCount())
	}
	if len(metas) != 2 {
		t.Errorf("usage of the failed attempt must be kept, got %d metas", len(metas))
	}
	if recorder.count("option") != 1 {
		t.Errorf("rejected payload should be recorded once, got %d", recorder.count("option"))
	}
}

func TestBuildOptionExhausted(t *testing.T) {
	req := lunchRequest()
	stub := &stubTextGen{responses: []string{"not json at all"}}
	builder := NewBuilder(stub, nil, nil, Options{})

	_, _, err := builder.BuildOption(context.Background(), req, profile.DefaultPreferences())
	var exhausted *BuildExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected BuildExhausted, got %v", err)
	}
	if exhausted.Stage != "option" {
		t.Errorf("expected stage option, got %q", exhausted.Stage)
	}
	if exhausted.Attempts != 6 {
		t.Errorf("expected the default 6 attempts, got %d", exhausted.Attempts)
	}
	if exhausted.MealName != "Lunch" || exhausted.OptionKind != "main" {
		t.Errorf("exhaustion should identify the slot, got %+v", exhausted)
	}
	if exhausted.Target != req.Target {
		t.Errorf("exhaustion should carry the target, got %+v", exhausted.Target)
	}
	if stub.callCount() != 6 {
		t.Errorf("expected 6 generation calls, got %d", stub.callCount())
	}
	if len(exhausted.LastIssues) == 0 {
		t.Error("exhaustion should carry the last issues")
	}
}

// Every attempt sends the identical prompt. Rejections are handled by
// regenerating, not by arguing with the model.
func TestBuildOptionPromptIsStable(t *testing.T) {
	req := lunchRequest()
	stub := &stubTextGen{responses: []string{
		"garbage",
		"more garbage",
		optionJSON(t, "Lunch", "Chicken and rice", req.Target),
	}}
	builder := NewBuilder(stub, nil, nil, Options{})

	if _, _, err := builder.BuildOption(context.Background(), req, profile.DefaultPreferences()); err != nil {
		t.Fatalf("BuildOption failed: %v", err)
	}
	if stub.callCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", stub.callCount())
	}
	first := stub.prompt(0)
	for i := 1; i < 3; i++ {
		if stub.prompt(i) != first {
			t.Fatalf("prompt of attempt %d differs from the first", i+1)
		}
	}
}

func TestBuildOptionPromptCarriesExclusions(t *testing.T) {
	req := lunchRequest()
	req.Kind = "alternative"
	req.ProteinSource = "salmon"
	req.AvoidProteins = []string{"chicken breast"}
	req.AvoidIngredients = []string{"Basmati rice", "Olive oil"}
	stub := &stubTextGen{responses: []string{optionJSON(t, "Lunch", "Baked salmon", req.Target)}}
	builder := NewBuilder(stub, nil, nil, Options{})

	if _, _, err := builder.BuildOption(context.Background(), req, profile.DefaultPreferences()); err != nil {
		t.Fatalf("BuildOption failed: %v", err)
	}
	prompt := stub.prompt(0)
	for _, want := range []string{"salmon", "chicken breast", "Basmati rice", "Olive oil", "alternative"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt should contain %q, got:\n%s", want, prompt)
		}
	}
}

func TestBuildOptionRejectsTooManyIngredients(t *testing.T) {
	req := lunchRequest()
	crowded := BuiltOption{
		MealName:  "Lunch",
		MealTitle: "Everything bowl",
		Nutrition: MacroTotals{Calories: 650, Protein: 45, Fat: 20},
	}
	for i := 0; i < 8; i++ {
		crowded.Ingredients = append(crowded.Ingredients, Ingredient{Item: "Ingredient", PortionGrams: 10})
	}
	crowdedJSON, err := json.Marshal(crowded)
	if err != nil {
		t.Fatal(err)
	}
	recorder := &recorderStub{}
	stub := &stubTextGen{responses: []string{
		string(crowdedJSON),
		optionJSON(t, "Lunch", "Simple bowl", req.Target),
	}}
	builder := NewBuilder(stub, recorder, nil, Options{})

	opt, _, err := builder.BuildOption(context.Background(), req, profile.DefaultPreferences())
	if err != nil {
		t.Fatalf("BuildOption failed: %v", err)
	}
	if opt.MealTitle != "Simple bowl" {
		t.Errorf("crowded option should have been rejected, got %q", opt.MealTitle)
	}
	if recorder.count("option") != 1 {
		t.Fatalf("expected one recorded rejection, got %d", recorder.count("option"))
	}
	issues := recorder.entries[0].issues
	if len(issues) == 0 || !strings.Contains(issues[0], "8 ingredients") {
		t.Errorf("rejection should name the ingredient count, got %v", issues)
	}
}

func TestBuildOptionBackfillsNutrition(t *testing.T) {
	req := lunchRequest()
	raw := `{
		"meal_name": "Lunch",
		"meal_title": "Chicken and rice",
		"ingredients": [
			{"item": "Chicken breast", "portion_grams": 150, "calories": 250, "protein": 45, "fat": 5, "carbs": 0},
			{"item": "Rice", "portion_grams": 180, "calories": 400, "protein": 0, "fat": 15, "carbs": 60}
		]
	}`
	stub := &stubTextGen{responses: []string{raw}}
	builder := NewBuilder(stub, nil, nil, Options{})

	opt, _, err := builder.BuildOption(context.Background(), req, profile.DefaultPreferences())
	if err != nil {
		t.Fatalf("BuildOption failed: %v", err)
	}
	want := MacroTotals{Calories: 650, Protein: 45, Fat: 20, Carbs: 60}
	if opt.Nutrition != want {
		t.Errorf("nutrition should be summed from ingredients, got %+v", opt.Nutrition)
	}
}

func TestBuildOptionKosherRejection(t *testing.T) {
	req := lunchRequest()
	stub := &stubTextGen{responses: []string{
		optionJSON(t, "Lunch", "Pork chops", req.Target, Ingredient{
			Item: "Pork chops", PortionGrams: 200,
			Calories: 650, Protein: 45, Fat: 20,
		}),
		optionJSON(t, "Lunch", "Chicken and rice", req.Target),
	}}
	builder := NewBuilder(stub, nil, nil, Options{})

	opt, _, err := builder.BuildOption(context.Background(), req, kosherPrefs())
	if err != nil {
		t.Fatalf("BuildOption failed: %v", err)
	}
	if opt.MealTitle != "Chicken and rice" {
		t.Errorf("non-kosher option should have been rejected, got %q", opt.MealTitle)
	}
	if stub.callCount() != 2 {
		t.Errorf("expected 2 calls, got %d", stub.callCount())
	}
}

func TestBuildOptionEmptyIngredients(t *testing.T) {
	req := lunchRequest()
	bare := `{"meal_name": "Lunch", "meal_title": "Air", "ingredients": [], "nutrition": {"calories": 650, "protein": 45, "fat": 20}}`
	stub := &stubTextGen{responses: []string{
		bare,
		optionJSON(t, "Lunch", "Chicken and rice", req.Target),
	}}
	builder := NewBuilder(stub, nil, nil, Options{})

	opt, _, err := builder.BuildOption(context.Background(), req, profile.DefaultPreferences())
	if err != nil {
		t.Fatalf("BuildOption failed: %v", err)
	}
	if opt.MealTitle != "Chicken and rice" {
		t.Errorf("ingredientless option should have been rejected, got %q", opt.MealTitle)
	}
}
