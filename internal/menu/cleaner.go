package menu

import (
	"regexp"
	"strings"
)

var (
	parenthesized = regexp.MustCompile(`\([^()]*\)`)
	multiSpace    = regexp.MustCompile(`\s{2,}`)
)

// CleanIngredientName strips the brand out of an item name so the menu
// reads as food, not packaging. The brand is matched case-insensitively
// in a fixed positional order: prefix, suffix, hyphen-joined on either
// side, then a bare occurrence anywhere. Parenthesized substrings are
// removed afterwards. The function is idempotent and returns the item
// unchanged when either field is empty.
func CleanIngredientName(item, brand string) string {
	name := strings.TrimSpace(item)
	b := strings.TrimSpace(brand)
	if name == "" || b == "" {
		return item
	}

	quoted := regexp.QuoteMeta(b)
	for _, pattern := range []string{
		`(?i)^` + quoted + `\s+`,
		`(?i)\s+` + quoted + `$`,
		`(?i)^` + quoted + `\s*-\s*`,
		`(?i)\s*-\s*` + quoted + `$`,
		`(?i)` + quoted,
	} {
		re := regexp.MustCompile(pattern)
		if re.MatchString(name) {
			name = re.ReplaceAllString(name, " ")
			break
		}
	}

	for {
		stripped := parenthesized.ReplaceAllString(name, " ")
		if stripped == name {
			break
		}
		name = stripped
	}

	name = multiSpace.ReplaceAllString(name, " ")
	name = strings.Trim(name, " -,")
	if name == "" {
		return strings.TrimSpace(item)
	}
	return name
}

// CleanMenu returns a copy of the menu with every ingredient name
// cleaned. The input is not mutated.
func CleanMenu(m Menu) Menu {
	out := make(Menu, len(m))
	for i, meal := range m {
		meal.Main = cleanOption(meal.Main)
		meal.Alternative = cleanOption(meal.Alternative)
		out[i] = meal
	}
	return out
}

func cleanOption(opt BuiltOption) BuiltOption {
	if len(opt.Ingredients) == 0 {
		return opt
	}
	cleaned := make([]Ingredient, len(opt.Ingredients))
	for i, ing := range opt.Ingredients {
		ing.Item = CleanIngredientName(ing.Item, ing.Brand)
		cleaned[i] = ing
	}
	opt.Ingredients = cleaned
	return opt
}
