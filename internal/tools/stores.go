package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kalambet/larder/internal/storage"
)

// PantryStore is the pantry capability. *storage.Store implements it.
type PantryStore interface {
	ListPantryItems(ctx context.Context, userID string) ([]storage.PantryItem, error)
	GetPantryItem(ctx context.Context, userID, id string) (storage.PantryItem, error)
	AddPantryItem(ctx context.Context, item storage.PantryItem) (storage.PantryItem, error)
	UpdatePantryItem(ctx context.Context, item storage.PantryItem) error
	DeletePantryItem(ctx context.Context, userID, id string) error
}

// RecipeStore is the recipe collection capability.
type RecipeStore interface {
	ListRecipes(ctx context.Context, userID string) ([]storage.Recipe, error)
	GetRecipe(ctx context.Context, userID, id string) (storage.Recipe, error)
	SaveRecipe(ctx context.Context, r storage.Recipe) (storage.Recipe, error)
	DeleteRecipe(ctx context.Context, userID, id string) error
}

// MealPlanStore is the meal planner capability. Dates are YYYY-MM-DD.
type MealPlanStore interface {
	ListMeals(ctx context.Context, userID, from, to string) ([]storage.Meal, error)
	GetMeal(ctx context.Context, userID, id string) (storage.Meal, error)
	SaveMeal(ctx context.Context, m storage.Meal) (storage.Meal, error)
	MoveMeal(ctx context.Context, userID, id, date, mealType string) error
	SwapMeals(ctx context.Context, userID, idA, idB string) error
	DeleteMeal(ctx context.Context, userID, id string) error
	DeleteMealsInRange(ctx context.Context, userID, from, to string) (int, error)
}

// GroceryStore is the grocery list capability.
type GroceryStore interface {
	ListGroceryLists(ctx context.Context, userID string) ([]storage.GroceryList, error)
	GetGroceryList(ctx context.Context, userID, id string) (storage.GroceryList, error)
	FindGroceryList(ctx context.Context, userID, name string) (storage.GroceryList, error)
	CreateGroceryList(ctx context.Context, userID, name string) (storage.GroceryList, error)
	AddGroceryItem(ctx context.Context, userID, listID, text string) (storage.GroceryItem, error)
}

var (
	_ PantryStore   = (*storage.Store)(nil)
	_ RecipeStore   = (*storage.Store)(nil)
	_ MealPlanStore = (*storage.Store)(nil)
	_ GroceryStore  = (*storage.Store)(nil)
)

// decodeArgs maps validated arguments onto a typed struct.
func decodeArgs(args map[string]any, v any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding arguments: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding arguments: %w", err)
	}
	return nil
}
