package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kalambet/larder/internal/storage"
)

var mealTypes = []string{storage.MealBreakfast, storage.MealLunch, storage.MealDinner, storage.MealSnack}

// maxPlanDays bounds bulk meal operations.
const maxPlanDays = 62

var rangeProperties = map[string]Property{
	"start_date": {Type: "string", Format: "date", Description: "First day (YYYY-MM-DD), inclusive"},
	"end_date":   {Type: "string", Format: "date", Description: "Last day (YYYY-MM-DD), inclusive"},
}

func (r *Registry) registerMealTools() {
	meals := r.deps.Meals

	r.register(Definition{
		Name:        "get_meal_plan",
		Description: "List planned meals between two dates. Defaults to the seven days starting today.",
		Parameters:  Schema{Properties: rangeProperties},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in dateRange
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.Start == "" {
			in.Start = r.today()
		}
		if in.End == "" {
			start, err := time.Parse(storage.DateLayout, in.Start)
			if err != nil {
				return nil, fmt.Errorf("invalid start_date %q", in.Start)
			}
			in.End = start.AddDate(0, 0, 6).Format(storage.DateLayout)
		}
		if _, err := in.days(); err != nil {
			return nil, err
		}
		return meals.ListMeals(ctx, uc.UserID, in.Start, in.End)
	})

	r.register(Definition{
		Name:        "add_meal",
		Description: "Plan a meal for a day and slot, either from a saved recipe or as a free-text title.",
		Parameters: Schema{
			Properties: map[string]Property{
				"date":      {Type: "string", Format: "date"},
				"meal_type": {Type: "string", Enum: mealTypes},
				"title":     {Type: "string"},
				"recipe_id": {Type: "string"},
			},
			Required: []string{"date", "meal_type"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			Date     string `json:"date"`
			MealType string `json:"meal_type"`
			Title    string `json:"title"`
			RecipeID string `json:"recipe_id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.RecipeID != "" && r.deps.Recipes != nil {
			rec, err := r.deps.Recipes.GetRecipe(ctx, uc.UserID, in.RecipeID)
			if err != nil {
				return nil, notFound("recipe", in.RecipeID, err)
			}
			if in.Title == "" {
				in.Title = rec.Name
			}
		}
		if in.Title == "" {
			return nil, errors.New("either title or recipe_id is required")
		}
		return meals.SaveMeal(ctx, storage.Meal{
			UserID:   uc.UserID,
			Date:     in.Date,
			MealType: in.MealType,
			RecipeID: in.RecipeID,
			Title:    in.Title,
		})
	})

	r.register(Definition{
		Name:        "remove_meal",
		Description: "Remove one planned meal.",
		Parameters: Schema{
			Properties: map[string]Property{"id": {Type: "string"}},
			Required:   []string{"id"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		id, _ := args["id"].(string)
		if err := meals.DeleteMeal(ctx, uc.UserID, id); err != nil {
			return nil, notFound("meal", id, err)
		}
		return map[string]any{"id": id, "removed": true}, nil
	})

	r.register(Definition{
		Name:        "move_meal",
		Description: "Move a planned meal to another day and/or slot.",
		Parameters: Schema{
			Properties: map[string]Property{
				"id":        {Type: "string"},
				"date":      {Type: "string", Format: "date"},
				"meal_type": {Type: "string", Enum: mealTypes},
			},
			Required: []string{"id", "date", "meal_type"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			ID       string `json:"id"`
			Date     string `json:"date"`
			MealType string `json:"meal_type"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if err := meals.MoveMeal(ctx, uc.UserID, in.ID, in.Date, in.MealType); err != nil {
			return nil, notFound("meal", in.ID, err)
		}
		return meals.GetMeal(ctx, uc.UserID, in.ID)
	})

	r.register(Definition{
		Name:        "swap_meals",
		Description: "Exchange the days and slots of two planned meals.",
		Parameters: Schema{
			Properties: map[string]Property{
				"first_id":  {Type: "string"},
				"second_id": {Type: "string"},
			},
			Required: []string{"first_id", "second_id"},
		},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		first, _ := args["first_id"].(string)
		second, _ := args["second_id"].(string)
		if first == second {
			return nil, errors.New("cannot swap a meal with itself")
		}
		if err := meals.SwapMeals(ctx, uc.UserID, first, second); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("swap failed: %w", err)
			}
			return nil, err
		}
		return map[string]any{"first_id": first, "second_id": second, "swapped": true}, nil
	})

	r.register(Definition{
		Name:        "clear_meals",
		Description: "Delete every planned meal in a date range. Clearing an empty range succeeds with a count of 0.",
		Parameters:  Schema{Properties: rangeProperties, Required: []string{"start_date", "end_date"}},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in dateRange
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if _, err := in.days(); err != nil {
			return nil, err
		}
		n, err := meals.DeleteMealsInRange(ctx, uc.UserID, in.Start, in.End)
		if err != nil {
			return nil, err
		}
		return map[string]any{"cleared": n, "start_date": in.Start, "end_date": in.End}, nil
	})

	if r.deps.Recipes != nil {
		r.registerGenerateMealsTool()
	}
}

func (r *Registry) registerGenerateMealsTool() {
	meals, recipes := r.deps.Meals, r.deps.Recipes

	props := map[string]Property{
		"meal_types": {Type: "array", Items: &Property{Type: "string", Enum: mealTypes}, Description: "Slots to fill; defaults to breakfast, lunch and dinner"},
	}
	for k, v := range rangeProperties {
		props[k] = v
	}

	r.register(Definition{
		Name:        "generate_meals",
		Description: "Fill empty meal slots in a date range from the user's saved recipes. Returns how many meals were created (0 is a valid result).",
		Parameters:  Schema{Properties: props, Required: []string{"start_date", "end_date"}},
	}, func(ctx context.Context, args map[string]any, uc UserContext) (any, error) {
		var in struct {
			dateRange
			MealTypes []string `json:"meal_types"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		days, err := in.days()
		if err != nil {
			return nil, err
		}
		slots := in.MealTypes
		if len(slots) == 0 {
			slots = []string{storage.MealBreakfast, storage.MealLunch, storage.MealDinner}
		}

		all, err := recipes.ListRecipes(ctx, uc.UserID)
		if err != nil {
			return nil, fmt.Errorf("loading recipes: %w", err)
		}
		existing, err := meals.ListMeals(ctx, uc.UserID, in.Start, in.End)
		if err != nil {
			return nil, fmt.Errorf("loading meal plan: %w", err)
		}

		created := []storage.Meal{}
		failed := []FailedSlot{}
		if len(all) == 0 {
			return map[string]any{"generated": 0, "meals": created, "failed": failed}, nil
		}

		taken := make(map[string]bool, len(existing))
		for _, m := range existing {
			taken[m.Date+"/"+m.MealType] = true
		}
		pick := newRecipePicker(all)
		for _, day := range days {
			for _, slot := range slots {
				if taken[day+"/"+slot] {
					continue
				}
				rec := pick.next(slot)
				m, err := meals.SaveMeal(ctx, storage.Meal{
					UserID:   uc.UserID,
					Date:     day,
					MealType: slot,
					RecipeID: rec.ID,
					Title:    rec.Name,
				})
				if err != nil {
					failed = append(failed, FailedSlot{Date: day, MealType: slot, Error: err.Error()})
					continue
				}
				created = append(created, m)
			}
		}
		if len(created) == 0 && len(failed) > 0 {
			return nil, fmt.Errorf("could not save any of %d meals: %s", len(failed), failed[0].Error)
		}
		return map[string]any{"generated": len(created), "meals": created, "failed": failed}, nil
	})
}

// FailedSlot is a meal slot generate_meals could not save.
type FailedSlot struct {
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
	Error    string `json:"error"`
}

type dateRange struct {
	Start string `json:"start_date"`
	End   string `json:"end_date"`
}

// days lists every date in the range, inclusive.
func (d dateRange) days() ([]string, error) {
	start, err := time.Parse(storage.DateLayout, d.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date %q", d.Start)
	}
	end, err := time.Parse(storage.DateLayout, d.End)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date %q", d.End)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end_date %s is before start_date %s", d.End, d.Start)
	}
	if end.Sub(start) > maxPlanDays*24*time.Hour {
		return nil, fmt.Errorf("date range longer than %d days", maxPlanDays)
	}
	var out []string
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		out = append(out, day.Format(storage.DateLayout))
	}
	return out, nil
}

// recipePicker hands out recipes round-robin per slot, preferring recipes
// tagged with the slot name.
type recipePicker struct {
	all    []storage.Recipe
	bySlot map[string][]storage.Recipe
	cursor map[string]int
}

func newRecipePicker(all []storage.Recipe) *recipePicker {
	p := &recipePicker{all: all, bySlot: map[string][]storage.Recipe{}, cursor: map[string]int{}}
	for _, rec := range all {
		for _, slot := range mealTypes {
			if hasTag(rec, slot) {
				p.bySlot[slot] = append(p.bySlot[slot], rec)
			}
		}
	}
	return p
}

func (p *recipePicker) next(slot string) storage.Recipe {
	pool := p.bySlot[slot]
	if len(pool) == 0 {
		pool = p.all
	}
	rec := pool[p.cursor[slot]%len(pool)]
	p.cursor[slot]++
	return rec
}
