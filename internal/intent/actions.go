package intent

import (
	"encoding/json"
	"strings"
)

// Action is one of the concrete intent types below.
type Action interface {
	// Intent returns the canonical tag the action was parsed from.
	Intent() string
	isAction()
}

// ShoppingItem is one item to put on the shopping list. Quantity keeps the
// model's text ("1", "1/2", "a couple").
type ShoppingItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

// Slot addresses one meal in the plan by day reference and meal type.
type Slot struct {
	Day      string `json:"day"`
	MealType string `json:"meal_type"`
}

type (
	AddShoppingItems struct{ Items []ShoppingItem }
	Navigate         struct{ Destination string }
	AddMeal          struct {
		Food     string
		MealType string
		Day      string
	}
	ClearMeals              struct{ TimeRange string }
	GenerateMeals           struct{ TimeRange string }
	MoveMeal                struct{ From, To Slot }
	SwapMeals               struct{ First, Second Slot }
	SearchRecipes           struct{ Query string }
	DeleteRecipe            struct{ RecipeName string }
	AddRecipeToShoppingList struct{ RecipeName string }
	Help                    struct{}
	Greeting                struct{}
	Unrecognized            struct{ Tag string }
)

func (AddShoppingItems) Intent() string        { return TagAddShoppingItem }
func (Navigate) Intent() string                { return TagNavigate }
func (AddMeal) Intent() string                 { return TagAddMeal }
func (ClearMeals) Intent() string              { return TagClearMeals }
func (GenerateMeals) Intent() string           { return TagGenerateMeals }
func (MoveMeal) Intent() string                { return TagMoveMeal }
func (SwapMeals) Intent() string               { return TagSwapMeals }
func (SearchRecipes) Intent() string           { return TagSearchRecipes }
func (DeleteRecipe) Intent() string            { return TagDeleteRecipe }
func (AddRecipeToShoppingList) Intent() string { return TagAddRecipeToShoppingList }
func (Help) Intent() string                    { return TagHelp }
func (Greeting) Intent() string                { return TagGreeting }
func (u Unrecognized) Intent() string          { return u.Tag }

func (AddShoppingItems) isAction()        {}
func (Navigate) isAction()                {}
func (AddMeal) isAction()                 {}
func (ClearMeals) isAction()              {}
func (GenerateMeals) isAction()           {}
func (MoveMeal) isAction()                {}
func (SwapMeals) isAction()               {}
func (SearchRecipes) isAction()           {}
func (DeleteRecipe) isAction()            {}
func (AddRecipeToShoppingList) isAction() {}
func (Help) isAction()                    {}
func (Greeting) isAction()                {}
func (Unrecognized) isAction()            {}

// Navigation destinations and the client route each maps to.
var Destinations = map[string]string{
	"home":          "/",
	"pantry":        "/pantry",
	"recipes":       "/recipes",
	"meal-plan":     "/meal-plan",
	"shopping-list": "/shopping-list",
	"settings":      "/settings",
}

var destinationAliases = map[string]string{
	"meal-planner": "meal-plan",
	"meals":        "meal-plan",
	"planner":      "meal-plan",
	"grocery-list": "shopping-list",
	"groceries":    "shopping-list",
	"shopping":     "shopping-list",
	"dashboard":    "home",
	"recipe":       "recipes",
	"kitchen":      "pantry",
	"preferences":  "settings",
}

// NormalizeDestination maps a spoken destination onto a Destinations key.
// ok is false when the destination is unknown.
func NormalizeDestination(dest string) (key string, ok bool) {
	key = strings.ToLower(strings.TrimSpace(dest))
	key = strings.NewReplacer(" ", "-", "_", "-").Replace(key)
	key = strings.TrimPrefix(key, "the-")
	if alias, found := destinationAliases[key]; found {
		key = alias
	}
	_, ok = Destinations[key]
	return key, ok
}

// MealTypes are the planner slots an add_meal/move/swap may name.
var MealTypes = []string{"breakfast", "lunch", "dinner", "snack"}

func normalizeMealType(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "supper" {
		s = "dinner"
	}
	for _, m := range MealTypes {
		if s == m {
			return s, true
		}
	}
	return s, false
}

// Parse maps an Interpretation onto its Action, validating required
// entities. Unknown tags yield Unrecognized, never an error.
func Parse(in Interpretation) (Action, error) {
	tag := in.Tag()
	switch tag {
	case TagAddShoppingItem:
		items, err := parseItems(in.Entities["items"])
		if err != nil || len(items) == 0 {
			return nil, &EntityError{Intent: tag, Missing: []string{"items"}}
		}
		return AddShoppingItems{Items: items}, nil

	case TagNavigate:
		dest, ok := in.String("destination", "page", "screen")
		if !ok {
			return nil, &EntityError{Intent: tag, Missing: []string{"destination"}}
		}
		return Navigate{Destination: dest}, nil

	case TagAddMeal:
		food, hasFood := in.String("food", "recipe", "recipeName", "dish")
		mealType, hasType := in.String("mealType", "meal_type", "meal")
		var missing []string
		if !hasFood {
			missing = append(missing, "food")
		}
		if !hasType {
			missing = append(missing, "mealType")
		}
		if len(missing) > 0 {
			return nil, &EntityError{Intent: tag, Missing: missing}
		}
		mt, ok := normalizeMealType(mealType)
		if !ok {
			return nil, &EntityError{Intent: tag, Missing: []string{"mealType"}, Reason: "unknown meal type " + mealType}
		}
		day, ok := in.String("day", "date")
		if !ok {
			day = "today"
		}
		return AddMeal{Food: food, MealType: mt, Day: day}, nil

	case TagClearMeals, TagGenerateMeals:
		tr, ok := in.String("timeRange", "time_range", "range", "day")
		if !ok {
			return nil, &EntityError{Intent: tag, Missing: []string{"timeRange"}}
		}
		if tag == TagClearMeals {
			return ClearMeals{TimeRange: tr}, nil
		}
		return GenerateMeals{TimeRange: tr}, nil

	case TagMoveMeal, TagSwapMeals:
		from, to, err := parseSlots(in, tag)
		if err != nil {
			return nil, err
		}
		if tag == TagMoveMeal {
			return MoveMeal{From: from, To: to}, nil
		}
		return SwapMeals{First: from, Second: to}, nil

	case TagSearchRecipes:
		q, ok := in.String("recipeName", "recipe_name", "query", "recipe")
		if !ok {
			return nil, &EntityError{Intent: tag, Missing: []string{"recipeName"}}
		}
		return SearchRecipes{Query: q}, nil

	case TagDeleteRecipe, TagAddRecipeToShoppingList:
		name, ok := in.String("recipeName", "recipe_name", "recipe")
		if !ok {
			return nil, &EntityError{Intent: tag, Missing: []string{"recipeName"}}
		}
		if tag == TagDeleteRecipe {
			return DeleteRecipe{RecipeName: name}, nil
		}
		return AddRecipeToShoppingList{RecipeName: name}, nil

	case TagHelp:
		return Help{}, nil
	case TagGreeting:
		return Greeting{}, nil
	default:
		return Unrecognized{Tag: tag}, nil
	}
}

// parseSlots reads fromDay/fromMealType/toDay/toMealType and reports every
// missing entity at once.
func parseSlots(in Interpretation, tag string) (Slot, Slot, error) {
	var from, to Slot
	fields := []struct {
		key, alt string
		dst      *string
	}{
		{"fromDay", "from_day", &from.Day},
		{"fromMealType", "from_meal_type", &from.MealType},
		{"toDay", "to_day", &to.Day},
		{"toMealType", "to_meal_type", &to.MealType},
	}

	var missing []string
	for _, f := range fields {
		v, ok := in.String(f.key, f.alt)
		if !ok {
			missing = append(missing, f.key)
			continue
		}
		*f.dst = v
	}
	if len(missing) > 0 {
		return Slot{}, Slot{}, &EntityError{Intent: tag, Missing: missing}
	}
	for _, s := range []*Slot{&from, &to} {
		mt, ok := normalizeMealType(s.MealType)
		if !ok {
			return Slot{}, Slot{}, &EntityError{Intent: tag, Reason: "unknown meal type " + s.MealType}
		}
		s.MealType = mt
	}
	return from, to, nil
}

// parseItems accepts a list of item objects or bare strings. Quantity may
// be a JSON number or string.
func parseItems(raw json.RawMessage) ([]ShoppingItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		// A single item object or string is accepted too.
		elems = []json.RawMessage{raw}
	}

	var items []ShoppingItem
	for _, el := range elems {
		if s, ok := scalarString(el); ok {
			if s != "" {
				items = append(items, ShoppingItem{Name: s})
			}
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(el, &obj); err != nil {
			return nil, err
		}
		view := Interpretation{Entities: obj}
		name, ok := view.String("name", "item")
		if !ok {
			continue
		}
		qty, _ := view.String("quantity", "qty", "amount")
		unit, _ := view.String("unit")
		items = append(items, ShoppingItem{Name: name, Quantity: qty, Unit: unit})
	}
	return items, nil
}
