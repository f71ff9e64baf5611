package tools

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/larder/internal/storage"
)

var fixedNow = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC) // a Wednesday

func newTestRegistry(t *testing.T) (*Registry, *memStore) {
	t.Helper()
	m := newMemStore()
	r := NewRegistry(Deps{
		Pantry:  m,
		Recipes: m,
		Meals:   m,
		Grocery: m,
		Now:     func() time.Time { return fixedNow },
	})
	return r, m
}

var alice = UserContext{UserID: "alice"}

func mustSucceed(t *testing.T, res Result) {
	t.Helper()
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := r.Execute(context.Background(), "launch_rockets", nil, alice)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error != "Tool not found: launch_rockets" {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestExecute_RecoversPanic(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.register(Definition{Name: "explode"}, func(context.Context, map[string]any, UserContext) (any, error) {
		panic("boom")
	})
	res := r.Execute(context.Background(), "explode", nil, alice)
	if res.Success {
		t.Fatal("expected failure result after panic")
	}
	if res.Error == "" {
		t.Error("expected an error message")
	}
}

func TestExecute_ValidatesArguments(t *testing.T) {
	r, m := newTestRegistry(t)
	res := r.Execute(context.Background(), "add_pantry_item", map[string]any{"quantity": 2}, alice)
	if res.Success {
		t.Fatal("expected missing name to be rejected")
	}
	if !strings.Contains(res.Error, "name") {
		t.Errorf("Error = %q, want it to mention name", res.Error)
	}

	res = r.Execute(context.Background(), "add_meal", map[string]any{
		"date": "2026-03-04", "meal_type": "brunch", "title": "Waffles",
	}, alice)
	if res.Success {
		t.Fatal("expected enum violation to be rejected")
	}
	if len(m.meals) != 0 {
		t.Error("handler ran despite invalid arguments")
	}
}

func TestExecute_RequiresUser(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := r.Execute(context.Background(), "get_pantry", nil, UserContext{})
	if res.Success {
		t.Fatal("expected failure without user")
	}
}

func TestDefinitions_PureAndCopied(t *testing.T) {
	r, _ := newTestRegistry(t)
	first := r.Definitions()
	first[0].Name = "mutated"
	second := r.Definitions()
	if second[0].Name == "mutated" {
		t.Fatal("Definitions returned shared backing array")
	}
	third := r.Definitions()
	if diff := cmp.Diff(second, third); diff != "" {
		t.Errorf("Definitions not idempotent (-first +second):\n%s", diff)
	}
	for _, d := range second {
		if d.Parameters.Type != "object" {
			t.Errorf("%s parameters type = %q, want object", d.Name, d.Parameters.Type)
		}
		if _, err := json.Marshal(d.Parameters); err != nil {
			t.Errorf("%s parameters not serializable: %v", d.Name, err)
		}
	}
}

func TestNewRegistry_OmitsToolsWithoutCapability(t *testing.T) {
	r := NewRegistry(Deps{Pantry: newMemStore()})
	for _, name := range []string{"get_pantry", "add_pantry_item", "convert_units", "parse_ingredients", "estimate_nutrition"} {
		if !r.Has(name) {
			t.Errorf("expected %s to be registered", name)
		}
	}
	for _, name := range []string{"search_recipes", "check_recipe_availability", "add_meal", "generate_meals", "add_grocery_item", "generate_grocery_list"} {
		if r.Has(name) {
			t.Errorf("%s registered without its capability", name)
		}
	}
	res := r.Execute(context.Background(), "search_recipes", nil, alice)
	if res.Error != "Tool not found: search_recipes" {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestPantryTools_ScopedByUser(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	mustSucceed(t, r.Execute(ctx, "add_pantry_item", map[string]any{"name": "milk", "quantity": 1, "unit": "gallon"}, alice))
	mustSucceed(t, r.Execute(ctx, "add_pantry_item", map[string]any{"name": "eggs", "quantity": 6}, UserContext{UserID: "bob"}))

	res := r.Execute(ctx, "get_pantry", nil, alice)
	mustSucceed(t, res)
	items := res.Data.([]storage.PantryItem)
	if len(items) != 1 || items[0].Name != "milk" {
		t.Fatalf("alice pantry = %+v", items)
	}

	res = r.Execute(ctx, "remove_pantry_item", map[string]any{"id": items[0].ID}, UserContext{UserID: "bob"})
	if res.Success {
		t.Fatal("bob removed alice's item")
	}

	res = r.Execute(ctx, "update_pantry_item", map[string]any{"id": items[0].ID, "quantity": 0.5}, alice)
	mustSucceed(t, res)
	if got := res.Data.(storage.PantryItem).Quantity; got != 0.5 {
		t.Errorf("updated quantity = %v, want 0.5", got)
	}
}

func TestCreateRecipe_FromText(t *testing.T) {
	r, m := newTestRegistry(t)
	res := r.Execute(context.Background(), "create_recipe", map[string]any{
		"name":             "Pancakes",
		"ingredients_text": "1 1/2 cups flour\n2 eggs\nWhisk everything together.",
		"ingredients":      []any{map[string]any{"name": "salt", "quantity": 1, "unit": "pinch"}},
	}, alice)
	mustSucceed(t, res)

	want := []storage.RecipeIngredient{
		{Name: "salt", Quantity: 1, Unit: "pinch"},
		{Name: "flour", Quantity: 1.5, Unit: "cups"},
		{Name: "eggs", Quantity: 2},
	}
	if diff := cmp.Diff(want, m.recipes[0].Ingredients); diff != "" {
		t.Errorf("ingredients mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchRecipes_SubstringCollectionOrder(t *testing.T) {
	r, m := newTestRegistry(t)
	for _, name := range []string{"Chicken Curry", "Lemon Tart", "Curry Noodles"} {
		m.SaveRecipe(context.Background(), storage.Recipe{UserID: "alice", Name: name})
	}
	m.SaveRecipe(context.Background(), storage.Recipe{UserID: "bob", Name: "Bob's Curry"})

	res := r.Execute(context.Background(), "search_recipes", map[string]any{"query": "CURRY"}, alice)
	mustSucceed(t, res)
	var names []string
	for _, rec := range res.Data.([]storage.Recipe) {
		names = append(names, rec.Name)
	}
	if diff := cmp.Diff([]string{"Chicken Curry", "Curry Noodles"}, names); diff != "" {
		t.Errorf("search mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckAvailability(t *testing.T) {
	rec := storage.Recipe{ID: "r1", Name: "Omelette", Ingredients: []storage.RecipeIngredient{
		{Name: "Eggs", Quantity: 3},
		{Name: "milk", Quantity: 250, Unit: "ml"},
		{Name: "cheese", Quantity: 50, Unit: "g"},
		{Name: "chives", Quantity: 1, Unit: "tbsp"},
	}}
	pantry := []storage.PantryItem{
		{Name: "eggs", Quantity: 6},
		{Name: "Milk", Quantity: 2, Unit: "cups"},
		{Name: "cheese", Quantity: 10, Unit: "g"},
		{Name: "chive", Quantity: 5, Unit: "tbsp"},
	}

	a := CheckAvailability(rec, pantry)
	if diff := cmp.Diff([]string{"Eggs", "milk"}, a.Available); diff != "" {
		t.Errorf("available mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"cheese", "chives"}, a.Missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
	if a.Percentage != 50 {
		t.Errorf("Percentage = %v, want 50", a.Percentage)
	}
}

func TestCheckAvailability_Units(t *testing.T) {
	rec := storage.Recipe{ID: "r2", Name: "Brunch", Ingredients: []storage.RecipeIngredient{
		{Name: "eggs", Quantity: 12},
		{Name: "flour", Quantity: 1, Unit: "cup"},
		{Name: "butter", Quantity: 100, Unit: "g"},
		{Name: "salt"},
		{Name: "vanilla", Quantity: 4, Unit: "ml"},
	}}
	pantry := []storage.PantryItem{
		{Name: "eggs", Quantity: 1, Unit: "dozen"},
		{Name: "flour", Quantity: 300, Unit: "ml"},
		{Name: "butter", Quantity: 0.25, Unit: "lb"},
		{Name: "salt", Quantity: 1, Unit: "kg"},
		{Name: "vanilla", Quantity: 1, Unit: "tsp"},
	}

	a := CheckAvailability(rec, pantry)
	// eggs: unit on one side only; vanilla: 1 tsp is ~4.93 ml.
	if diff := cmp.Diff([]string{"flour", "butter", "salt", "vanilla"}, a.Available); diff != "" {
		t.Errorf("available mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"eggs"}, a.Missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
	if a.Percentage != 80 {
		t.Errorf("Percentage = %v, want 80", a.Percentage)
	}
}

func TestConvertUnitsTool_KeepsPrecision(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := r.Execute(context.Background(), "convert_units", map[string]any{"value": 1, "from": "ml", "to": "cups"}, alice)
	mustSucceed(t, res)
	got := res.Data.(map[string]any)["result"].(float64)
	if math.Abs(got-0.00423) > 1e-5 {
		t.Errorf("result = %v, want ~0.00423", got)
	}
}

func TestCheckAvailability_NoIngredients(t *testing.T) {
	a := CheckAvailability(storage.Recipe{ID: "r", Name: "Air"}, []storage.PantryItem{{Name: "salt", Quantity: 1}})
	if a.Percentage != 0 || math.IsNaN(a.Percentage) {
		t.Errorf("Percentage = %v, want 0", a.Percentage)
	}
	if a.Total != 0 {
		t.Errorf("Total = %d, want 0", a.Total)
	}
}

func TestCheckRecipeAvailabilityTool(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()
	rec, _ := m.SaveRecipe(ctx, storage.Recipe{UserID: "alice", Name: "Toast", Ingredients: []storage.RecipeIngredient{
		{Name: "bread", Quantity: 2, Unit: "slices"},
		{Name: "butter", Quantity: 1, Unit: "tbsp"},
	}})
	m.AddPantryItem(ctx, storage.PantryItem{UserID: "alice", Name: "Bread", Quantity: 10, Unit: "slices"})

	res := r.Execute(ctx, "check_recipe_availability", map[string]any{"recipe_id": rec.ID}, alice)
	mustSucceed(t, res)
	a := res.Data.(Availability)
	if a.Percentage != 50 {
		t.Errorf("Percentage = %v, want 50", a.Percentage)
	}

	res = r.Execute(ctx, "check_recipe_availability", map[string]any{"recipe_id": "nope"}, alice)
	if res.Success || !strings.Contains(res.Error, "not found") {
		t.Errorf("missing recipe result = %+v", res)
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		value    float64
		from, to string
		want     float64
	}{
		{1, "cups", "ml", 236.588},
		{2, "cups", "ml", 473.176},
		{1, "ml", "cups", 0.00423},
		{2, "cup", "tbsp", 32},
		{473.176, "ml", "cups", 2},
		{1, "lb", "oz", 16},
		{32, "oz", "lb", 2},
		{3, "tsp", "tbsp", 1},
		{5, "g", "grams", 5},
	}
	for _, tt := range tests {
		got, err := Convert(tt.value, tt.from, tt.to)
		if err != nil {
			t.Errorf("Convert(%v, %s, %s) error: %v", tt.value, tt.from, tt.to, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-5 {
			t.Errorf("Convert(%v, %s, %s) = %v, want %v", tt.value, tt.from, tt.to, got, tt.want)
		}
	}

	_, err := Convert(1, "cups", "g")
	if err == nil || err.Error() != "conversion not supported: cups to g" {
		t.Errorf("Convert(cups, g) error = %v", err)
	}
}

func TestConvertUnitsTool(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := r.Execute(context.Background(), "convert_units", map[string]any{"value": 2, "from": "cups", "to": "furlongs"}, alice)
	if res.Success {
		t.Fatal("expected unsupported conversion to fail")
	}
	if !strings.Contains(res.Error, "conversion not supported") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestClearMeals_ZeroIsSuccess(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := r.Execute(context.Background(), "clear_meals", map[string]any{"start_date": "2026-03-02", "end_date": "2026-03-08"}, alice)
	mustSucceed(t, res)
	if got := res.Data.(map[string]any)["cleared"]; got != 0 {
		t.Errorf("cleared = %v, want 0", got)
	}
}

func TestGenerateMeals_FillsEmptySlots(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()
	m.SaveRecipe(ctx, storage.Recipe{UserID: "alice", Name: "Porridge", Tags: []string{"breakfast"}})
	m.SaveRecipe(ctx, storage.Recipe{UserID: "alice", Name: "Stew"})
	m.SaveMeal(ctx, storage.Meal{UserID: "alice", Date: "2026-03-04", MealType: "dinner", Title: "Takeaway"})

	res := r.Execute(ctx, "generate_meals", map[string]any{"start_date": "2026-03-04", "end_date": "2026-03-05"}, alice)
	mustSucceed(t, res)
	data := res.Data.(map[string]any)
	if data["generated"] != 5 {
		t.Fatalf("generated = %v, want 5", data["generated"])
	}
	for _, ml := range data["meals"].([]storage.Meal) {
		if ml.MealType == "breakfast" && ml.Title != "Porridge" {
			t.Errorf("breakfast on %s = %q, want Porridge", ml.Date, ml.Title)
		}
	}
}

func TestGenerateMeals_NoRecipesIsNoop(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := r.Execute(context.Background(), "generate_meals", map[string]any{"start_date": "2026-03-04", "end_date": "2026-03-10"}, alice)
	mustSucceed(t, res)
	if got := res.Data.(map[string]any)["generated"]; got != 0 {
		t.Errorf("generated = %v, want 0", got)
	}
}

func TestGenerateMeals_PartialFailureKeepsCounts(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()
	m.SaveRecipe(ctx, storage.Recipe{UserID: "alice", Name: "Stew"})
	m.failMealSave[3] = true

	res := r.Execute(ctx, "generate_meals", map[string]any{"start_date": "2026-03-04", "end_date": "2026-03-04"}, alice)
	mustSucceed(t, res)
	data := res.Data.(map[string]any)
	if data["generated"] != 2 {
		t.Errorf("generated = %v, want 2", data["generated"])
	}
	want := []FailedSlot{{Date: "2026-03-04", MealType: "dinner", Error: "insert meal: disk full"}}
	if diff := cmp.Diff(want, data["failed"]); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if len(m.meals) != 2 {
		t.Errorf("stored meals = %d, want 2", len(m.meals))
	}
}

func TestGenerateMeals_AllSavesFail(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()
	m.SaveRecipe(ctx, storage.Recipe{UserID: "alice", Name: "Stew"})
	for i := 1; i <= 3; i++ {
		m.failMealSave[i] = true
	}

	res := r.Execute(ctx, "generate_meals", map[string]any{"start_date": "2026-03-04", "end_date": "2026-03-04"}, alice)
	if res.Success {
		t.Fatalf("expected failure, got %+v", res.Data)
	}
	if !strings.Contains(res.Error, "could not save any of 3 meals") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestGetMealPlan_DefaultsToThisWeek(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()
	m.SaveMeal(ctx, storage.Meal{UserID: "alice", Date: "2026-03-10", MealType: "lunch", Title: "in range"})
	m.SaveMeal(ctx, storage.Meal{UserID: "alice", Date: "2026-03-11", MealType: "lunch", Title: "out of range"})

	res := r.Execute(ctx, "get_meal_plan", nil, alice)
	mustSucceed(t, res)
	meals := res.Data.([]storage.Meal)
	if len(meals) != 1 || meals[0].Title != "in range" {
		t.Errorf("meals = %+v", meals)
	}
}

func TestSwapMeals_MissingSide(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()
	a, _ := m.SaveMeal(ctx, storage.Meal{UserID: "alice", Date: "2026-03-04", MealType: "lunch", Title: "A"})
	res := r.Execute(ctx, "swap_meals", map[string]any{"first_id": a.ID, "second_id": "missing"}, alice)
	if res.Success {
		t.Fatal("expected failure")
	}
}

func TestAddGroceryItem_DefaultList(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()
	mustSucceed(t, r.Execute(ctx, "add_grocery_item", map[string]any{"text": "1 gallon milk"}, alice))
	mustSucceed(t, r.Execute(ctx, "add_grocery_item", map[string]any{"text": "bread"}, alice))

	if len(m.lists) != 1 {
		t.Fatalf("created %d lists, want 1", len(m.lists))
	}
	if diff := cmp.Diff([]string{"1 gallon milk", "bread"}, m.itemTexts("alice", DefaultListName)); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateGroceryList_AggregatesByNameAndUnit(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()
	pancakes, _ := m.SaveRecipe(ctx, storage.Recipe{UserID: "alice", Name: "Pancakes", Ingredients: []storage.RecipeIngredient{
		{Name: "flour", Quantity: 1.5, Unit: "cups"},
		{Name: "milk", Quantity: 1, Unit: "cup"},
		{Name: "eggs", Quantity: 2},
	}})
	bread, _ := m.SaveRecipe(ctx, storage.Recipe{UserID: "alice", Name: "Bread", Ingredients: []storage.RecipeIngredient{
		{Name: "Flour", Quantity: 3, Unit: "cups"},
		{Name: "flour", Quantity: 100, Unit: "g"},
		{Name: "salt"},
	}})
	m.SaveMeal(ctx, storage.Meal{UserID: "alice", Date: "2026-03-04", MealType: "breakfast", RecipeID: pancakes.ID, Title: "Pancakes"})
	m.SaveMeal(ctx, storage.Meal{UserID: "alice", Date: "2026-03-05", MealType: "lunch", RecipeID: bread.ID, Title: "Bread"})
	m.SaveMeal(ctx, storage.Meal{UserID: "alice", Date: "2026-03-05", MealType: "dinner", Title: "Out"})

	res := r.Execute(ctx, "generate_grocery_list", map[string]any{"start_date": "2026-03-04", "end_date": "2026-03-10", "name": "Week"}, alice)
	mustSucceed(t, res)

	want := []string{"4.5 cups flour", "1 cup milk", "2 eggs", "100 g flour", "salt"}
	if diff := cmp.Diff(want, m.itemTexts("alice", "Week")); diff != "" {
		t.Errorf("grocery lines mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateGroceryList_PartialFailure(t *testing.T) {
	r, m := newTestRegistry(t)
	ctx := context.Background()
	rec, _ := m.SaveRecipe(ctx, storage.Recipe{UserID: "alice", Name: "Toast", Ingredients: []storage.RecipeIngredient{
		{Name: "bread", Quantity: 2, Unit: "slices"},
		{Name: "butter", Quantity: 1, Unit: "tbsp"},
		{Name: "jam"},
	}})
	m.SaveMeal(ctx, storage.Meal{UserID: "alice", Date: "2026-03-04", MealType: "breakfast", RecipeID: rec.ID, Title: "Toast"})
	m.failAddItem["1 tbsp butter"] = true

	res := r.Execute(ctx, "generate_grocery_list", map[string]any{"start_date": "2026-03-04", "end_date": "2026-03-04", "name": "Toast run"}, alice)
	mustSucceed(t, res)
	data := res.Data.(map[string]any)
	if data["added"] != 2 || data["total"] != 3 {
		t.Errorf("added/total = %v/%v, want 2/3", data["added"], data["total"])
	}
	if diff := cmp.Diff([]string{"1 tbsp butter"}, data["failed"]); diff != "" {
		t.Errorf("failed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2 slices bread", "jam"}, m.itemTexts("alice", "Toast run")); diff != "" {
		t.Errorf("grocery lines mismatch (-want +got):\n%s", diff)
	}

	m.failAddItem["2 slices bread"] = true
	m.failAddItem["jam"] = true
	res = r.Execute(ctx, "generate_grocery_list", map[string]any{"start_date": "2026-03-04", "end_date": "2026-03-04", "name": "Second run"}, alice)
	if res.Success || !strings.Contains(res.Error, "could not add any of 3 lines") {
		t.Errorf("all lines failing: result = %+v", res)
	}
}

func TestFormatItem(t *testing.T) {
	tests := []struct{ q, u, n, want string }{
		{"1", "gallon", "milk", "1 gallon milk"},
		{"2", "", "eggs", "2 eggs"},
		{"", "", "bread", "bread"},
		{"", "cup", "sugar", "sugar"},
	}
	for _, tt := range tests {
		if got := FormatItem(tt.q, tt.u, tt.n); got != tt.want {
			t.Errorf("FormatItem(%q, %q, %q) = %q, want %q", tt.q, tt.u, tt.n, got, tt.want)
		}
	}
}

func TestCheckDiet(t *testing.T) {
	ings := []string{"peanut butter", "bread", "honey", "chicken stock"}

	veg := CheckDiet(DietVegetarian, ings)
	if veg.Compliant || len(veg.Violations) != 1 || veg.Violations[0] != "chicken stock" {
		t.Errorf("vegetarian = %+v", veg)
	}
	vegan := CheckDiet(DietVegan, ings)
	if diff := cmp.Diff([]string{"chicken stock", "honey"}, vegan.Violations); diff != "" {
		t.Errorf("vegan violations (-want +got):\n%s", diff)
	}
	gf := CheckDiet(DietGlutenFree, []string{"gluten-free bread", "rice flour", "soy sauce"})
	if diff := cmp.Diff([]string{"soy sauce"}, gf.Violations); diff != "" {
		t.Errorf("gluten-free violations (-want +got):\n%s", diff)
	}
}

func TestEstimateNutrition(t *testing.T) {
	est := EstimateNutrition([]storage.RecipeIngredient{
		{Name: "eggs", Quantity: 2},
		{Name: "butter", Quantity: 1, Unit: "tbsp"},
		{Name: "dragonfruit", Quantity: 1},
	}, 2)

	if len(est.Lines) != 2 {
		t.Fatalf("lines = %+v", est.Lines)
	}
	if diff := cmp.Diff([]string{"dragonfruit"}, est.Unmatched); diff != "" {
		t.Errorf("unmatched mismatch (-want +got):\n%s", diff)
	}
	// 100 g egg = 143 kcal; 14.2 g butter = 101.8 kcal.
	if math.Abs(est.Total.Calories-244.8) > 0.2 {
		t.Errorf("total calories = %v, want ~244.8", est.Total.Calories)
	}
	if est.PerServing == nil || math.Abs(est.PerServing.Calories-122.4) > 0.2 {
		t.Errorf("per serving = %+v", est.PerServing)
	}
}

func TestLookupFood_LongestMatch(t *testing.T) {
	if f := lookupFood("smooth peanut butter"); f == nil || f.Name != "peanut butter" {
		t.Errorf("lookupFood = %+v, want peanut butter", f)
	}
	if f := lookupFood("unsalted butter"); f == nil || f.Name != "butter" {
		t.Errorf("lookupFood = %+v, want butter", f)
	}
}
