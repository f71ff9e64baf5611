package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/larder/internal/intent"
	"github.com/kalambet/larder/internal/tools"
)

// addShoppingItems adds one list line per item, in order. A failed item
// does not stop the rest.
func (d *Dispatcher) addShoppingItems(ctx context.Context, uc tools.UserContext, a intent.AddShoppingItems) Outcome {
	var out Outcome
	var added, failed []string
	for _, it := range a.Items {
		text := tools.FormatItem(it.Quantity, it.Unit, it.Name)
		res := d.call(ctx, uc, &out, "add_grocery_item", text, map[string]any{
			"text":      text,
			"list_name": d.listName,
		})
		if res.Success {
			added = append(added, text)
		} else {
			failed = append(failed, text)
		}
	}

	total := len(a.Items)
	switch {
	case len(failed) == 0:
		out.Success = true
		if total == 1 {
			out.Message = fmt.Sprintf("Added %s to your shopping list.", added[0])
		} else {
			out.Message = fmt.Sprintf("Added %d items to your shopping list: %s.", total, strings.Join(added, ", "))
		}
	case len(added) == 0:
		out.Message = fmt.Sprintf("Sorry, I couldn't add %s to your shopping list.", joinAnd(failed))
	default:
		out.Message = fmt.Sprintf("Added %d of %d items to your shopping list (%s). I couldn't add %s.",
			len(added), total, strings.Join(added, ", "), joinAnd(failed))
	}
	out.Data = map[string]any{"added": added, "failed": failed}
	return out
}

func navigate(a intent.Navigate) Outcome {
	key, ok := intent.NormalizeDestination(a.Destination)
	if !ok {
		return clarify(intent.TagNavigate, fmt.Sprintf(
			"I'm not sure where %q is. I can open %s.", a.Destination, joinOr(destinationNames())))
	}
	return Outcome{
		Success:  true,
		Navigate: intent.Destinations[key],
		Message:  fmt.Sprintf("Opening %s.", destinationLabels[key]),
	}
}

var destinationLabels = map[string]string{
	"home":          "the home page",
	"pantry":        "your pantry",
	"recipes":       "your recipes",
	"meal-plan":     "your meal plan",
	"shopping-list": "your shopping list",
	"settings":      "settings",
}

var destinationOrder = []string{"home", "pantry", "recipes", "meal-plan", "shopping-list", "settings"}

func destinationNames() []string {
	names := make([]string, len(destinationOrder))
	for i, k := range destinationOrder {
		names[i] = strings.ReplaceAll(k, "-", " ")
	}
	return names
}
