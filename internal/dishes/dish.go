package dishes

import (
	"fmt"
	"strings"
	"time"
)

// Nutrition is the approximate macro content of one serving.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// Dish is one entry of the dish library. Imported dishes feed menu
// planning with realistic local food instead of whatever the model
// dreams up.
type Dish struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	SourceURL    string    `json:"source_url,omitempty"`
	Ingredients  []string  `json:"ingredients"`
	Instructions string    `json:"instructions,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Servings     string    `json:"servings,omitempty"`
	Nutrition    Nutrition `json:"nutrition"`
	CreatedAt    time.Time `json:"created_at"`
}

// EmbeddingText builds the semantic string a dish is embedded from.
// Stable across runs so unchanged dishes keep their hash.
func (d Dish) EmbeddingText() string {
	return fmt.Sprintf("Title: %s\nTags: %s\nIngredients: %s",
		d.Title, strings.Join(d.Tags, ", "), strings.Join(d.Ingredients, ", "))
}
