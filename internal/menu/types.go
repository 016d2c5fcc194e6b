package menu

// MealStructureEntry is one slot of the day's percentage split. Meal
// names are unique across the day and the calories_pct values are
// expected, not forced, to sum to 100.
type MealStructureEntry struct {
	Meal        string  `json:"meal"`
	CaloriesPct float64 `json:"calories_pct"`
}

// MacroTarget is the numeric goal one meal option must hit.
type MacroTarget struct {
	Calories          float64 `json:"calories"`
	Protein           float64 `json:"protein"`
	Fat               float64 `json:"fat"`
	Carbs             float64 `json:"carbs,omitempty"`
	MainProteinSource string  `json:"main_protein_source"`
}

// TemplateMeal carries the paired targets for one meal slot.
type TemplateMeal struct {
	Meal        string      `json:"meal"`
	Main        MacroTarget `json:"main"`
	Alternative MacroTarget `json:"alternative"`
}

// Template is the skeleton of a day's meals with macro targets per
// meal. It is validated before use and never mutated, only regenerated
// wholesale on failure.
type Template []TemplateMeal

// Ingredient is one line of a built option.
type Ingredient struct {
	Item             string  `json:"item"`
	PortionGrams     float64 `json:"portion_grams"`
	HouseholdMeasure string  `json:"household_measure"`
	Calories         float64 `json:"calories"`
	Protein          float64 `json:"protein"`
	Fat              float64 `json:"fat"`
	Carbs            float64 `json:"carbs"`
	Brand            string  `json:"brand"`
}

// MacroTotals sums the tracked macros of one or more options.
type MacroTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// BuiltOption is one accepted dish for a meal slot. It is immutable
// once accepted; a rejected candidate is discarded, never patched.
type BuiltOption struct {
	MealName    string       `json:"meal_name"`
	MealTitle   string       `json:"meal_title"`
	Ingredients []Ingredient `json:"ingredients"`
	Nutrition   MacroTotals  `json:"nutrition"`
}

// MenuMeal pairs the accepted main and alternative options of one slot.
type MenuMeal struct {
	Meal        string      `json:"meal"`
	Main        BuiltOption `json:"main"`
	Alternative BuiltOption `json:"alternative"`
}

// Menu is the finished day, one entry per template meal in order.
type Menu []MenuMeal

// ValidationReport is the flat issue list form used for per-option and
// whole-menu checks.
type ValidationReport struct {
	IsValid bool     `json:"is_valid"`
	Issues  []string `json:"issues"`
}

// TemplateReport carries the four independent issue channels of a
// template validation, plus the summed totals and daily targets that
// produced them.
type TemplateReport struct {
	IsValid           bool        `json:"is_valid"`
	IsValidMain       bool        `json:"is_valid_main"`
	IsValidAlt        bool        `json:"is_valid_alt"`
	IsValidSimilarity bool        `json:"is_valid_similarity"`
	IssuesMain        []string    `json:"issues_main"`
	IssuesAlt         []string    `json:"issues_alt"`
	IssuesMainAlt     []string    `json:"issues_main_alt"`
	IssuesSimilarity  []string    `json:"issues_similarity"`
	TotalsMain        MacroTotals `json:"totals_main"`
	TotalsAlt         MacroTotals `json:"totals_alt"`
	Targets           MacroTotals `json:"targets"`
}

// AllIssues flattens the four channels in a stable order, for feedback
// text and logs.
func (r TemplateReport) AllIssues() []string {
	out := make([]string, 0, len(r.IssuesMain)+len(r.IssuesAlt)+len(r.IssuesMainAlt)+len(r.IssuesSimilarity))
	out = append(out, r.IssuesMain...)
	out = append(out, r.IssuesAlt...)
	out = append(out, r.IssuesMainAlt...)
	out = append(out, r.IssuesSimilarity...)
	return out
}

// SumIngredients totals the per-ingredient macros of a candidate.
func SumIngredients(ingredients []Ingredient) MacroTotals {
	var t MacroTotals
	for _, ing := range ingredients {
		t.Calories += ing.Calories
		t.Protein += ing.Protein
		t.Fat += ing.Fat
		t.Carbs += ing.Carbs
	}
	return t
}

func (t MacroTotals) add(o MacroTotals) MacroTotals {
	return MacroTotals{
		Calories: t.Calories + o.Calories,
		Protein:  t.Protein + o.Protein,
		Fat:      t.Fat + o.Fat,
		Carbs:    t.Carbs + o.Carbs,
	}
}

// AggregateTotals sums accepted nutrition across the menu, each track
// independently.
func AggregateTotals(m Menu) (main, alt MacroTotals) {
	for _, meal := range m {
		main = main.add(meal.Main.Nutrition)
		alt = alt.add(meal.Alternative.Nutrition)
	}
	return main, alt
}

// templateTotals sums one track of a template's targets.
func templateTotals(t Template, alternative bool) MacroTotals {
	var out MacroTotals
	for _, meal := range t {
		target := meal.Main
		if alternative {
			target = meal.Alternative
		}
		out.Calories += target.Calories
		out.Protein += target.Protein
		out.Fat += target.Fat
		out.Carbs += target.Carbs
	}
	return out
}
