package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kalambet/larder/internal/storage"
)

// DefaultListName is used when a grocery tool is called without a list.
const DefaultListName = "Shopping List"

var listTargetProperties = map[string]Property{
	"list_id":   {Type: "string", Description: "Target list id"},
	"list_name": {Type: "string", Description: "Target list name; created if missing. Defaults to \"" + DefaultListName + "\""},
}

func (r *Registry) registerGroceryTools() {
	grocery := r.deps.Grocery

	r.register(Definition{
		Name:        "get_grocery_lists",
		Description: "List the user's grocery lists with their items.",
		Parameters:  Schema{},
	}, func(ctx context.Context, _ map[string]any, uc UserContext) (any, error) {
		return grocery.ListGroceryLists(ctx, uc.UserID)
	})

	r.register(Definition{
		Name:        "create_grocery_list",
		Description: "Create a new, empty grocery list.",
		Parameters: Schema{
			Properties: map[string]Property{"name": {Type: "string"}},
			Required:   []string{"name"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		name, _ := args["name"].(string)
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("name must not be empty")
		}
		return grocery.CreateGroceryList(ctx, uc.UserID, strings.TrimSpace(name))
	})

	addItemProps := map[string]Property{
		"text": {Type: "string", Description: "Display line, e.g. \"1 gallon milk\""},
	}
	for k, v := range listTargetProperties {
		addItemProps[k] = v
	}
	r.register(Definition{
		Name:        "add_grocery_item",
		Description: "Add one line to a grocery list.",
		Parameters:  Schema{Properties: addItemProps, Required: []string{"text"}},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			Text     string `json:"text"`
			ListID   string `json:"list_id"`
			ListName string `json:"list_name"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.Text) == "" {
			return nil, errors.New("text must not be empty")
		}
		list, err := r.resolveList(ctx, uc, in.ListID, in.ListName)
		if err != nil {
			return nil, err
		}
		item, err := grocery.AddGroceryItem(ctx, uc.UserID, list.ID, strings.TrimSpace(in.Text))
		if err != nil {
			return nil, err
		}
		return map[string]any{"list_id": list.ID, "list_name": list.Name, "item": item}, nil
	})

	if r.deps.Recipes != nil {
		r.registerRecipeGroceryTools()
	}
}

func (r *Registry) registerRecipeGroceryTools() {
	grocery, recipes := r.deps.Grocery, r.deps.Recipes

	props := map[string]Property{"recipe_id": {Type: "string"}}
	for k, v := range listTargetProperties {
		props[k] = v
	}
	r.register(Definition{
		Name:        "add_recipe_to_grocery_list",
		Description: "Add every ingredient of a recipe to a grocery list, one line each.",
		Parameters:  Schema{Properties: props, Required: []string{"recipe_id"}},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			RecipeID string `json:"recipe_id"`
			ListID   string `json:"list_id"`
			ListName string `json:"list_name"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		rec, err := recipes.GetRecipe(ctx, uc.UserID, in.RecipeID)
		if err != nil {
			return nil, notFound("recipe", in.RecipeID, err)
		}
		list, err := r.resolveList(ctx, uc, in.ListID, in.ListName)
		if err != nil {
			return nil, err
		}
		added := []storage.GroceryItem{}
		for _, ing := range rec.Ingredients {
			item, err := grocery.AddGroceryItem(ctx, uc.UserID, list.ID, FormatLine(ing.Quantity, ing.Unit, ing.Name))
			if err != nil {
				return nil, fmt.Errorf("adding %q after %d of %d lines: %w", ing.Name, len(added), len(rec.Ingredients), err)
			}
			added = append(added, item)
		}
		return map[string]any{
			"list_id":     list.ID,
			"list_name":   list.Name,
			"recipe_name": rec.Name,
			"added":       len(added),
			"items":       added,
		}, nil
	})

	if r.deps.Meals == nil {
		return
	}
	meals := r.deps.Meals

	genProps := map[string]Property{"name": {Type: "string", Description: "Name for the new list"}}
	for k, v := range rangeProperties {
		genProps[k] = v
	}
	r.register(Definition{
		Name:        "generate_grocery_list",
		Description: "Create a grocery list from the recipes planned in a date range, summing quantities of the same ingredient and unit.",
		Parameters:  Schema{Properties: genProps, Required: []string{"start_date", "end_date"}},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			dateRange
			Name string `json:"name"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if _, err := in.days(); err != nil {
			return nil, err
		}
		planned, err := meals.ListMeals(ctx, uc.UserID, in.Start, in.End)
		if err != nil {
			return nil, fmt.Errorf("loading meal plan: %w", err)
		}
		all, err := recipes.ListRecipes(ctx, uc.UserID)
		if err != nil {
			return nil, fmt.Errorf("loading recipes: %w", err)
		}
		byID := make(map[string]storage.Recipe, len(all))
		for _, rec := range all {
			byID[rec.ID] = rec
		}

		var used []storage.Recipe
		for _, m := range planned {
			if rec, ok := byID[m.RecipeID]; ok && m.RecipeID != "" {
				used = append(used, rec)
			}
		}
		groups := AggregateIngredients(used)
		if len(groups) == 0 {
			return map[string]any{"list": nil, "added": 0, "recipes": len(used)}, nil
		}

		name := in.Name
		if name == "" {
			name = fmt.Sprintf("Groceries %s to %s", in.Start, in.End)
		}
		list, err := grocery.CreateGroceryList(ctx, uc.UserID, name)
		if err != nil {
			return nil, err
		}
		failed := []string{}
		var firstErr error
		for _, g := range groups {
			line := FormatLine(g.Quantity, g.Unit, g.Name)
			item, err := grocery.AddGroceryItem(ctx, uc.UserID, list.ID, line)
			if err != nil {
				failed = append(failed, line)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			list.Items = append(list.Items, item)
		}
		if len(list.Items) == 0 {
			return nil, fmt.Errorf("created list %q but could not add any of %d lines: %w", list.Name, len(groups), firstErr)
		}
		return map[string]any{
			"list":    list,
			"added":   len(list.Items),
			"total":   len(groups),
			"failed":  failed,
			"recipes": len(used),
		}, nil
	})
}

// resolveList finds the target list by id, else by name (default
// DefaultListName), creating the named list when it does not exist.
func (r *Registry) resolveList(ctx context.Context, uc UserContext, id, name string) (storage.GroceryList, error) {
	grocery := r.deps.Grocery
	if id != "" {
		list, err := grocery.GetGroceryList(ctx, uc.UserID, id)
		if err != nil {
			return storage.GroceryList{}, notFound("grocery list", id, err)
		}
		return list, nil
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultListName
	}
	list, err := grocery.FindGroceryList(ctx, uc.UserID, name)
	if errors.Is(err, storage.ErrNotFound) {
		return grocery.CreateGroceryList(ctx, uc.UserID, name)
	}
	return list, err
}

// AggregateIngredients sums quantities across recipes by (name, unit),
// comparing both case-insensitively. Different units of the same
// ingredient stay separate. Groups keep first-seen order and spelling.
func AggregateIngredients(recipes []storage.Recipe) []storage.RecipeIngredient {
	var groups []storage.RecipeIngredient
	index := map[string]int{}
	for _, rec := range recipes {
		for _, ing := range rec.Ingredients {
			name := strings.TrimSpace(ing.Name)
			if name == "" {
				continue
			}
			key := strings.ToLower(name) + "\x00" + strings.ToLower(strings.TrimSpace(ing.Unit))
			if i, ok := index[key]; ok {
				groups[i].Quantity += ing.Quantity
				continue
			}
			index[key] = len(groups)
			groups = append(groups, storage.RecipeIngredient{Name: name, Quantity: ing.Quantity, Unit: strings.TrimSpace(ing.Unit)})
		}
	}
	return groups
}

// FormatLine renders "{q} {u} {n}", "{q} {n}" or "{n}" depending on which
// parts are present. A zero quantity counts as absent.
func FormatLine(quantity float64, unit, name string) string {
	if quantity == 0 {
		return strings.TrimSpace(name)
	}
	return FormatItem(FormatQuantity(quantity), unit, name)
}

// FormatItem is FormatLine for quantities already in display form.
func FormatItem(quantity, unit, name string) string {
	quantity, unit, name = strings.TrimSpace(quantity), strings.TrimSpace(unit), strings.TrimSpace(name)
	switch {
	case quantity != "" && unit != "":
		return quantity + " " + unit + " " + name
	case quantity != "":
		return quantity + " " + name
	default:
		return name
	}
}

// FormatQuantity prints q with at most three decimals and no trailing zeros.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(round3(q), 'f', -1, 64)
}
