// Package intent turns a model's interpretation of a user utterance into a
// closed set of typed actions.
//
// An Interpretation is the loosely typed JSON the model produces:
//
//	{"intent": "add_meal", "entities": {"food": "tacos", "mealType": "dinner", "day": "friday"}}
//
// Parse validates the entities each intent requires and returns one of the
// Action types below. Missing entities are reported as *EntityError so the
// caller can ask a clarifying question instead of guessing.
package intent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kalambet/larder/internal/jsonextract"
)

// Interpretation is the normalized model output for one utterance.
type Interpretation struct {
	Intent     string                     `json:"intent"`
	Entities   map[string]json.RawMessage `json:"entities,omitempty"`
	Response   string                     `json:"response,omitempty"`
	Confidence *float64                   `json:"confidence,omitempty"`
}

// Intent tags understood by Parse.
const (
	TagAddShoppingItem         = "add_shopping_item"
	TagNavigate                = "navigate"
	TagAddMeal                 = "add_meal"
	TagClearMeals              = "clear_meals"
	TagGenerateMeals           = "generate_meals"
	TagMoveMeal                = "move_meal"
	TagSwapMeals               = "swap_meals"
	TagSearchRecipes           = "search_recipes"
	TagDeleteRecipe            = "delete_recipe"
	TagAddRecipeToShoppingList = "add_recipe_to_shopping_list"
	TagHelp                    = "help"
	TagGreeting                = "greeting"
	TagUnknown                 = "unknown"
)

// Tags lists the canonical intent tags, for prompts and docs.
var Tags = []string{
	TagAddShoppingItem, TagNavigate, TagAddMeal, TagClearMeals, TagGenerateMeals,
	TagMoveMeal, TagSwapMeals, TagSearchRecipes, TagDeleteRecipe,
	TagAddRecipeToShoppingList, TagHelp, TagGreeting,
}

var tagAliases = map[string]string{
	"add_shopping_items":    TagAddShoppingItem,
	"add_to_shopping_list":  TagAddShoppingItem,
	"add_grocery_item":      TagAddShoppingItem,
	"search_recipe":         TagSearchRecipes,
	"find_recipe":           TagSearchRecipes,
	"add_recipe_to_grocery": TagAddRecipeToShoppingList,
	"greet":                 TagGreeting,
}

// Decode recovers an Interpretation from raw model text. A response without
// an intent tag decodes as TagUnknown, and confidence is clamped to [0, 1].
func Decode(text string) (Interpretation, error) {
	var in Interpretation
	if err := jsonextract.ExtractInto(text, &in); err != nil {
		return Interpretation{}, err
	}
	if strings.TrimSpace(in.Intent) == "" {
		in.Intent = TagUnknown
	}
	if in.Confidence != nil {
		c := min(max(*in.Confidence, 0), 1)
		in.Confidence = &c
	}
	return in, nil
}

// Tag returns the canonical intent tag.
func (in Interpretation) Tag() string {
	tag := strings.ToLower(strings.TrimSpace(in.Intent))
	tag = strings.NewReplacer("-", "_", " ", "_").Replace(tag)
	if canonical, ok := tagAliases[tag]; ok {
		return canonical
	}
	return tag
}

// EntityError reports entities an intent needs but did not get.
type EntityError struct {
	Intent  string
	Missing []string
	Reason  string
}

func (e *EntityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Intent, e.Reason)
	}
	return fmt.Sprintf("%s: missing %s", e.Intent, strings.Join(e.Missing, ", "))
}

// String returns the first of keys that holds a non-empty string or number.
func (in Interpretation) String(keys ...string) (string, bool) {
	for _, k := range keys {
		raw, ok := in.Entities[k]
		if !ok {
			continue
		}
		if s, ok := scalarString(raw); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// scalarString renders a JSON string, number or bool as text.
func scalarString(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}
