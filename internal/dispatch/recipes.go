package dispatch

import (
	"context"
	"fmt"

	"github.com/kalambet/larder/internal/intent"
	"github.com/kalambet/larder/internal/tools"
)

type recipeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// matchRecipes runs search_recipes for name. The tool matches names by
// case-insensitive substring in collection order.
func (d *Dispatcher) matchRecipes(ctx context.Context, uc tools.UserContext, out *Outcome, name string) ([]recipeRef, bool) {
	res := d.call(ctx, uc, out, "search_recipes", name, map[string]any{"query": name})
	if !res.Success {
		out.Message = fmt.Sprintf("Sorry, I couldn't search your recipes: %s.", res.Error)
		return nil, false
	}
	var found []recipeRef
	if err := decodeData(res.Data, &found); err != nil {
		d.logger.Warn("unexpected search_recipes result", "error", err)
		out.Message = apology
		return nil, false
	}
	return found, true
}

// findRecipe resolves name to the first matching recipe. On a miss out
// carries the not-found message.
func (d *Dispatcher) findRecipe(ctx context.Context, uc tools.UserContext, out *Outcome, name string) (recipeRef, bool) {
	found, ok := d.matchRecipes(ctx, uc, out, name)
	if !ok {
		return recipeRef{}, false
	}
	if len(found) == 0 {
		out.Message = fmt.Sprintf("I couldn't find a recipe called %q.", name)
		return recipeRef{}, false
	}
	return found[0], true
}

func (d *Dispatcher) searchRecipes(ctx context.Context, uc tools.UserContext, a intent.SearchRecipes) Outcome {
	var out Outcome
	found, ok := d.matchRecipes(ctx, uc, &out, a.Query)
	if !ok {
		return out
	}
	out.Success = true
	out.Data = found
	out.Navigate = intent.Destinations["recipes"]
	if len(found) == 0 {
		out.Message = fmt.Sprintf("I couldn't find any recipes matching %q.", a.Query)
		return out
	}
	names := make([]string, len(found))
	for i, r := range found {
		names[i] = r.Name
	}
	out.Message = fmt.Sprintf("Found %s matching %q: %s.", plural(len(found), "recipe"), a.Query, joinAnd(names))
	return out
}

func (d *Dispatcher) deleteRecipe(ctx context.Context, uc tools.UserContext, a intent.DeleteRecipe) Outcome {
	var out Outcome
	rec, ok := d.findRecipe(ctx, uc, &out, a.RecipeName)
	if !ok {
		return out
	}
	res := d.call(ctx, uc, &out, "delete_recipe", rec.Name, map[string]any{"id": rec.ID})
	if !res.Success {
		out.Message = fmt.Sprintf("Sorry, I couldn't delete %s: %s.", rec.Name, res.Error)
		return out
	}
	out.Success = true
	out.Data = res.Data
	out.Message = fmt.Sprintf("Deleted the recipe %s.", rec.Name)
	return out
}

func (d *Dispatcher) addRecipeToShoppingList(ctx context.Context, uc tools.UserContext, a intent.AddRecipeToShoppingList) Outcome {
	var out Outcome
	rec, ok := d.findRecipe(ctx, uc, &out, a.RecipeName)
	if !ok {
		return out
	}
	res := d.call(ctx, uc, &out, "add_recipe_to_grocery_list", rec.Name, map[string]any{
		"recipe_id": rec.ID,
		"list_name": d.listName,
	})
	if !res.Success {
		out.Message = fmt.Sprintf("Sorry, I couldn't add %s to your shopping list: %s.", rec.Name, res.Error)
		return out
	}
	var data struct {
		Added int `json:"added"`
	}
	if err := decodeData(res.Data, &data); err != nil {
		d.logger.Warn("unexpected add_recipe_to_grocery_list result", "error", err)
	}
	out.Success = true
	out.Data = res.Data
	if data.Added == 0 {
		out.Message = fmt.Sprintf("%s has no ingredients to add.", rec.Name)
	} else {
		out.Message = fmt.Sprintf("Added %s from %s to your shopping list.", plural(data.Added, "ingredient"), rec.Name)
	}
	return out
}
