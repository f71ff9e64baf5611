package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kalambet/larder/internal/ingredient"
	"github.com/kalambet/larder/internal/storage"
)

var ingredientProperty = Property{
	Type: "object",
	Properties: map[string]Property{
		"name":     {Type: "string"},
		"quantity": {Type: "number"},
		"unit":     {Type: "string"},
	},
	Required: []string{"name"},
}

func (r *Registry) registerRecipeTools() {
	recipes := r.deps.Recipes

	r.register(Definition{
		Name:        "search_recipes",
		Description: "Find the user's recipes whose name contains the query (case-insensitive). An empty query lists all recipes.",
		Parameters: Schema{Properties: map[string]Property{
			"query": {Type: "string", Description: "Text to look for in recipe names"},
			"tag":   {Type: "string", Description: "Only recipes carrying this tag"},
			"limit": {Type: "integer", Description: "Maximum number of results"},
		}},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			Query string `json:"query"`
			Tag   string `json:"tag"`
			Limit int    `json:"limit"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		all, err := recipes.ListRecipes(ctx, uc.UserID)
		if err != nil {
			return nil, err
		}
		matches := MatchRecipes(all, in.Query)
		if in.Tag != "" {
			tagged := matches[:0]
			for _, rec := range matches {
				if hasTag(rec, in.Tag) {
					tagged = append(tagged, rec)
				}
			}
			matches = tagged
		}
		if in.Limit > 0 && len(matches) > in.Limit {
			matches = matches[:in.Limit]
		}
		return matches, nil
	})

	r.register(Definition{
		Name:        "get_recipe",
		Description: "Fetch one recipe with its ingredients.",
		Parameters: Schema{
			Properties: map[string]Property{"id": {Type: "string", Description: "Recipe id"}},
			Required:   []string{"id"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		id, _ := args["id"].(string)
		rec, err := recipes.GetRecipe(ctx, uc.UserID, id)
		if err != nil {
			return nil, notFound("recipe", id, err)
		}
		return rec, nil
	})

	r.register(Definition{
		Name:        "create_recipe",
		Description: "Save a new recipe. Ingredients may be given as structured objects, as free text (one per line), or both.",
		Parameters: Schema{
			Properties: map[string]Property{
				"name":             {Type: "string"},
				"description":      {Type: "string"},
				"instructions":     {Type: "string"},
				"servings":         {Type: "integer"},
				"tags":             {Type: "array", Items: &Property{Type: "string"}},
				"source_url":       {Type: "string"},
				"ingredients":      {Type: "array", Items: &ingredientProperty},
				"ingredients_text": {Type: "string", Description: "Free-text ingredient lines, e.g. \"1 1/2 cups flour\""},
			},
			Required: []string{"name"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			Name            string                     `json:"name"`
			Description     string                     `json:"description"`
			Instructions    string                     `json:"instructions"`
			Servings        int                        `json:"servings"`
			Tags            []string                   `json:"tags"`
			SourceURL       string                     `json:"source_url"`
			Ingredients     []storage.RecipeIngredient `json:"ingredients"`
			IngredientsText string                     `json:"ingredients_text"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.Name) == "" {
			return nil, errors.New("name must not be empty")
		}
		ings := in.Ingredients
		if in.IngredientsText != "" {
			ings = append(ings, IngredientsFromText(in.IngredientsText)...)
		}
		return recipes.SaveRecipe(ctx, storage.Recipe{
			UserID:       uc.UserID,
			Name:         strings.TrimSpace(in.Name),
			Description:  in.Description,
			Instructions: in.Instructions,
			Servings:     in.Servings,
			Tags:         in.Tags,
			SourceURL:    in.SourceURL,
			Ingredients:  ings,
		})
	})

	r.register(Definition{
		Name:        "delete_recipe",
		Description: "Delete one of the user's recipes.",
		Parameters: Schema{
			Properties: map[string]Property{"id": {Type: "string", Description: "Recipe id"}},
			Required:   []string{"id"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		id, _ := args["id"].(string)
		rec, err := recipes.GetRecipe(ctx, uc.UserID, id)
		if err != nil {
			return nil, notFound("recipe", id, err)
		}
		if err := recipes.DeleteRecipe(ctx, uc.UserID, id); err != nil {
			return nil, notFound("recipe", id, err)
		}
		return map[string]any{"id": id, "name": rec.Name, "deleted": true}, nil
	})

	r.register(Definition{
		Name:        "check_dietary_compliance",
		Description: "Advisory keyword check of a recipe's ingredients against vegetarian, vegan or gluten-free diets.",
		Parameters: Schema{
			Properties: map[string]Property{
				"recipe_id": {Type: "string"},
				"diet":      {Type: "string", Enum: diets, Description: "Diet to check; omit to check all"},
			},
			Required: []string{"recipe_id"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			RecipeID string `json:"recipe_id"`
			Diet     string `json:"diet"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		rec, err := recipes.GetRecipe(ctx, uc.UserID, in.RecipeID)
		if err != nil {
			return nil, notFound("recipe", in.RecipeID, err)
		}
		names := make([]string, len(rec.Ingredients))
		for i, ing := range rec.Ingredients {
			names[i] = ing.Name
		}
		checks := []DietCheck{}
		for _, d := range diets {
			if in.Diet == "" || in.Diet == d {
				checks = append(checks, CheckDiet(d, names))
			}
		}
		return map[string]any{
			"recipe_id":   rec.ID,
			"recipe_name": rec.Name,
			"checks":      checks,
			"advisory":    "keyword check only; always confirm product labels",
		}, nil
	})

	if r.deps.Pantry != nil {
		r.registerAvailabilityTool()
	}
}

func (r *Registry) registerAvailabilityTool() {
	recipes, pantry := r.deps.Recipes, r.deps.Pantry

	r.register(Definition{
		Name:        "check_recipe_availability",
		Description: "Report which of a recipe's ingredients are already in the pantry in sufficient quantity.",
		Parameters: Schema{
			Properties: map[string]Property{"recipe_id": {Type: "string"}},
			Required:   []string{"recipe_id"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		id, _ := args["recipe_id"].(string)
		rec, err := recipes.GetRecipe(ctx, uc.UserID, id)
		if err != nil {
			return nil, notFound("recipe", id, err)
		}
		items, err := pantry.ListPantryItems(ctx, uc.UserID)
		if err != nil {
			return nil, fmt.Errorf("loading pantry: %w", err)
		}
		return CheckAvailability(rec, items), nil
	})
}

// Availability is the result of matching a recipe against the pantry.
type Availability struct {
	RecipeID   string   `json:"recipe_id"`
	RecipeName string   `json:"recipe_name"`
	Total      int      `json:"total"`
	Available  []string `json:"available"`
	Missing    []string `json:"missing"`
	Percentage float64  `json:"percentage"`
}

// CheckAvailability matches each ingredient to pantry items by exact,
// case-insensitive name and requires have >= need. A recipe without
// ingredients reports 0 percent.
func CheckAvailability(rec storage.Recipe, pantry []storage.PantryItem) Availability {
	a := Availability{
		RecipeID:   rec.ID,
		RecipeName: rec.Name,
		Total:      len(rec.Ingredients),
		Available:  []string{},
		Missing:    []string{},
	}
	for _, ing := range rec.Ingredients {
		if haveEnough(ing, pantry) {
			a.Available = append(a.Available, ing.Name)
		} else {
			a.Missing = append(a.Missing, ing.Name)
		}
	}
	if a.Total > 0 {
		a.Percentage = round3(float64(len(a.Available)) / float64(a.Total) * 100)
	}
	return a
}

// haveEnough reports whether some pantry item with the ingredient's name
// covers the needed quantity. An ingredient without a quantity only needs
// the name to match. Amounts are compared when both sides are unitless or
// when the conversion table relates their units; a unit on one side only
// cannot be compared and counts as missing.
func haveEnough(ing storage.RecipeIngredient, pantry []storage.PantryItem) bool {
	name := strings.TrimSpace(ing.Name)
	for _, it := range pantry {
		if !strings.EqualFold(strings.TrimSpace(it.Name), name) {
			continue
		}
		if ing.Quantity <= 0 {
			return true
		}
		if have, ok := amountIn(it, ing.Unit); ok && have >= ing.Quantity {
			return true
		}
	}
	return false
}

// amountIn expresses the pantry item's quantity in unit.
func amountIn(it storage.PantryItem, unit string) (float64, bool) {
	hasUnit, wantUnit := strings.TrimSpace(it.Unit) != "", strings.TrimSpace(unit) != ""
	switch {
	case !hasUnit && !wantUnit:
		return it.Quantity, true
	case hasUnit != wantUnit:
		return 0, false
	}
	v, err := Convert(it.Quantity, it.Unit, unit)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MatchRecipes returns recipes whose name contains query, case-insensitively,
// in collection order.
func MatchRecipes(all []storage.Recipe, query string) []storage.Recipe {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []storage.Recipe{}
	for _, rec := range all {
		if strings.Contains(strings.ToLower(rec.Name), q) {
			out = append(out, rec)
		}
	}
	return out
}

func hasTag(rec storage.Recipe, tag string) bool {
	for _, t := range rec.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// IngredientsFromText parses free-text lines into recipe ingredients.
// Lines the parser rejects are dropped.
func IngredientsFromText(text string) []storage.RecipeIngredient {
	batch := ingredient.ParseBatch(text)
	ings := make([]storage.RecipeIngredient, 0, len(batch.Items))
	for _, l := range batch.Items {
		ing := storage.RecipeIngredient{Name: l.Name}
		if l.QuantityValue != nil {
			ing.Quantity = *l.QuantityValue
		}
		if l.Unit != nil {
			ing.Unit = *l.Unit
		}
		ings = append(ings, ing)
	}
	return ings
}
