package tools

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// conversions maps "{from}_to_{to}" to a multiplier. The reverse direction
// divides by the same factor. Conversions are not chained.
var conversions = map[string]float64{
	"cups_to_ml":      236.588,
	"tbsp_to_ml":      14.7868,
	"tsp_to_ml":       4.92892,
	"fl_oz_to_ml":     29.5735,
	"l_to_ml":         1000,
	"oz_to_g":         28.3495,
	"lb_to_g":         453.592,
	"kg_to_g":         1000,
	"lb_to_oz":        16,
	"cups_to_tbsp":    16,
	"tbsp_to_tsp":     3,
	"gallon_to_l":     3.78541,
	"quart_to_cups":   4,
	"pint_to_cups":    2,
	"gallon_to_quart": 4,
}

var unitAliases = map[string]string{
	"cup": "cups", "cups": "cups", "c": "cups",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbsp": "tbsp", "tbs": "tbsp", "tbl": "tbsp",
	"teaspoon": "tsp", "teaspoons": "tsp", "tsp": "tsp",
	"fl oz": "fl_oz", "fl_oz": "fl_oz", "fluid ounce": "fl_oz", "fluid ounces": "fl_oz",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml", "ml": "ml",
	"liter": "l", "liters": "l", "litre": "l", "litres": "l", "l": "l",
	"ounce": "oz", "ounces": "oz", "oz": "oz",
	"pound": "lb", "pounds": "lb", "lb": "lb", "lbs": "lb",
	"gram": "g", "grams": "g", "g": "g",
	"kilogram": "kg", "kilograms": "kg", "kg": "kg",
	"gallon": "gallon", "gallons": "gallon", "gal": "gallon",
	"quart": "quart", "quarts": "quart", "qt": "quart",
	"pint": "pint", "pints": "pint", "pt": "pint",
}

// CanonicalUnit returns the conversion-table spelling of unit, or the
// trimmed lowercase input when it has no alias.
func CanonicalUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(unit, ".")))
	if c, ok := unitAliases[u]; ok {
		return c
	}
	return u
}

// Convert converts value between units using the fixed table. The result is
// not rounded; FormatQuantity rounds for display.
func Convert(value float64, from, to string) (float64, error) {
	f, t := CanonicalUnit(from), CanonicalUnit(to)
	if f == t && f != "" {
		return value, nil
	}
	if factor, ok := conversions[f+"_to_"+t]; ok {
		return value * factor, nil
	}
	if factor, ok := conversions[t+"_to_"+f]; ok {
		return value / factor, nil
	}
	return 0, fmt.Errorf("conversion not supported: %s to %s", from, to)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func (r *Registry) registerUtilityTools() {
	r.register(Definition{
		Name:        "convert_units",
		Description: "Convert a cooking quantity between units, e.g. cups to ml or lb to g.",
		Parameters: Schema{
			Properties: map[string]Property{
				"value": {Type: "number", Description: "Amount to convert"},
				"from":  {Type: "string", Description: "Source unit"},
				"to":    {Type: "string", Description: "Target unit"},
			},
			Required: []string{"value", "from", "to"},
		},
	}, func(_ context.Context, args map[string]any, _ UserContext) (any, error) {
		var in struct {
			Value float64 `json:"value"`
			From  string  `json:"from"`
			To    string  `json:"to"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := Convert(in.Value, in.From, in.To)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"value":  in.Value,
			"from":   in.From,
			"to":     in.To,
			"result": out,
		}, nil
	})

	r.registerNutritionTool()
	r.registerParseTool()
}
