package tools

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/larder/internal/ingredient"
	"github.com/kalambet/larder/internal/storage"
)

//go:embed nutrition.yaml
var nutritionYAML []byte

// Macros are nutrient amounts. In the reference table they are per 100 g.
type Macros struct {
	Calories float64 `yaml:"calories" json:"calories"`
	Protein  float64 `yaml:"protein" json:"protein_g"`
	Fat      float64 `yaml:"fat" json:"fat_g"`
	Carbs    float64 `yaml:"carbs" json:"carbs_g"`
}

func (m Macros) scaled(grams float64) Macros {
	f := grams / 100
	return Macros{Calories: m.Calories * f, Protein: m.Protein * f, Fat: m.Fat * f, Carbs: m.Carbs * f}
}

func (m Macros) add(o Macros) Macros {
	return Macros{Calories: m.Calories + o.Calories, Protein: m.Protein + o.Protein, Fat: m.Fat + o.Fat, Carbs: m.Carbs + o.Carbs}
}

func (m Macros) rounded() Macros {
	return Macros{Calories: round1(m.Calories), Protein: round1(m.Protein), Fat: round1(m.Fat), Carbs: round1(m.Carbs)}
}

type food struct {
	Name    string             `yaml:"name"`
	Aliases []string           `yaml:"aliases"`
	Per100g Macros             `yaml:"per_100g"`
	Grams   map[string]float64 `yaml:"grams"`

	pattern *regexp.Regexp
}

type nutritionTable struct {
	Foods []*food `yaml:"foods"`
}

var foods = mustLoadNutrition(nutritionYAML)

func mustLoadNutrition(data []byte) []*food {
	var t nutritionTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		panic(fmt.Sprintf("tools: parsing nutrition table: %v", err))
	}
	for _, f := range t.Foods {
		names := append([]string{f.Name}, f.Aliases...)
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = regexp.QuoteMeta(n)
		}
		f.pattern = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return t.Foods
}

// lookupFood finds the reference entry whose name or alias appears in
// name. The longest match wins, so "peanut butter" beats "butter".
func lookupFood(name string) *food {
	lower := strings.ToLower(name)
	var best *food
	bestLen := 0
	for _, f := range foods {
		if m := f.pattern.FindString(lower); len(m) > bestLen {
			best, bestLen = f, len(m)
		}
	}
	return best
}

// gramsFor estimates the weight of quantity units of f.
func gramsFor(f *food, quantity float64, unit string) (float64, bool) {
	u := CanonicalUnit(unit)
	if u == "" {
		u = "each"
	}
	if u == "g" {
		return quantity, true
	}
	if g, err := Convert(quantity, u, "g"); err == nil {
		return g, true
	}
	if per, ok := f.Grams[u]; ok {
		return quantity * per, true
	}
	// Fall back through the conversion table to a unit the entry knows.
	for known, per := range f.Grams {
		if converted, err := Convert(quantity, u, known); err == nil {
			return converted * per, true
		}
	}
	return 0, false
}

// NutritionLine is the estimate for one ingredient.
type NutritionLine struct {
	Ingredient string  `json:"ingredient"`
	Food       string  `json:"food"`
	Grams      float64 `json:"grams"`
	Macros     Macros  `json:"macros"`
}

// NutritionEstimate totals the matched ingredients.
type NutritionEstimate struct {
	Total      Macros          `json:"total"`
	PerServing *Macros         `json:"per_serving,omitempty"`
	Lines      []NutritionLine `json:"lines"`
	Unmatched  []string        `json:"unmatched"`
}

// EstimateNutrition applies the reference table to ingredients. Lines with
// no table entry or no usable quantity are listed in Unmatched.
func EstimateNutrition(ings []storage.RecipeIngredient, servings int) NutritionEstimate {
	est := NutritionEstimate{Lines: []NutritionLine{}, Unmatched: []string{}}
	for _, ing := range ings {
		f := lookupFood(ing.Name)
		if f == nil || ing.Quantity == 0 {
			est.Unmatched = append(est.Unmatched, ing.Name)
			continue
		}
		grams, ok := gramsFor(f, ing.Quantity, ing.Unit)
		if !ok {
			est.Unmatched = append(est.Unmatched, ing.Name)
			continue
		}
		m := f.Per100g.scaled(grams)
		est.Total = est.Total.add(m)
		est.Lines = append(est.Lines, NutritionLine{
			Ingredient: ing.Name,
			Food:       f.Name,
			Grams:      round1(grams),
			Macros:     m.rounded(),
		})
	}
	if servings > 0 {
		per := est.Total.scaled(100 / float64(servings)).rounded()
		est.PerServing = &per
	}
	est.Total = est.Total.rounded()
	return est
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

func (r *Registry) registerNutritionTool() {
	r.register(Definition{
		Name:        "estimate_nutrition",
		Description: "Estimate calories and macronutrients for a saved recipe or for free-text ingredient lines.",
		Parameters: Schema{Properties: map[string]Property{
			"recipe_id":        {Type: "string"},
			"ingredients_text": {Type: "string", Description: "Ingredient lines, one per line"},
			"servings":         {Type: "integer", Description: "Divide totals by this many servings"},
		}},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			RecipeID        string `json:"recipe_id"`
			IngredientsText string `json:"ingredients_text"`
			Servings        int    `json:"servings"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		var ings []storage.RecipeIngredient
		switch {
		case in.RecipeID != "":
			if r.deps.Recipes == nil {
				return nil, errors.New("recipes are not available")
			}
			rec, err := r.deps.Recipes.GetRecipe(ctx, uc.UserID, in.RecipeID)
			if err != nil {
				return nil, notFound("recipe", in.RecipeID, err)
			}
			ings = rec.Ingredients
			if in.Servings == 0 {
				in.Servings = rec.Servings
			}
		case in.IngredientsText != "":
			ings = IngredientsFromText(in.IngredientsText)
		default:
			return nil, errors.New("either recipe_id or ingredients_text is required")
		}
		return EstimateNutrition(ings, in.Servings), nil
	})
}

func (r *Registry) registerParseTool() {
	r.register(Definition{
		Name:        "parse_ingredients",
		Description: "Extract quantity, unit and name from free-text ingredient lines.",
		Parameters: Schema{
			Properties: map[string]Property{"text": {Type: "string"}},
			Required:   []string{"text"},
		},
	}, func(_ context.Context, args map[string]any, _ UserContext) (any, error) {
		text, _ := args["text"].(string)
		return ingredient.ParseBatch(text), nil
	})
}
