package ingredient

import "strings"

var vulgarFractions = map[rune]string{
	'½': "1/2",
	'⅓': "1/3",
	'⅔': "2/3",
	'¼': "1/4",
	'¾': "3/4",
	'⅕': "1/5",
	'⅖': "2/5",
	'⅗': "3/5",
	'⅘': "4/5",
	'⅙': "1/6",
	'⅚': "5/6",
	'⅛': "1/8",
	'⅜': "3/8",
	'⅝': "5/8",
	'⅞': "7/8",
}

// NormalizeFractions rewrites unicode vulgar fractions as ASCII "n/d".
// A fraction glued to a whole number ("1½") becomes a mixed number ("1 1/2").
func NormalizeFractions(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		if r == '⁄' {
			b.WriteByte('/')
			prev = r
			continue
		}
		frac, ok := vulgarFractions[r]
		if !ok {
			b.WriteRune(r)
			prev = r
			continue
		}
		if prev >= '0' && prev <= '9' {
			b.WriteByte(' ')
		}
		b.WriteString(frac)
		prev = r
	}
	return b.String()
}

var units = toSet(
	"cup", "cups", "c",
	"tablespoon", "tablespoons", "tbsp", "tbs", "tbl",
	"teaspoon", "teaspoons", "tsp",
	"ounce", "ounces", "oz",
	"pound", "pounds", "lb", "lbs",
	"gram", "grams", "g",
	"kilogram", "kilograms", "kg",
	"milligram", "milligrams", "mg",
	"milliliter", "milliliters", "millilitre", "millilitres", "ml",
	"liter", "liters", "litre", "litres", "l",
	"pint", "pints", "pt",
	"quart", "quarts", "qt",
	"gallon", "gallons", "gal",
	"clove", "cloves",
	"can", "cans",
	"package", "packages", "pkg",
	"pinch", "pinches",
	"dash", "dashes",
	"slice", "slices",
	"piece", "pieces",
	"stick", "sticks",
	"bunch", "bunches",
	"head", "heads",
	"sprig", "sprigs",
	"handful", "handfuls",
	"jar", "jars",
	"bottle", "bottles",
	"bag", "bags",
	"box", "boxes",
	"stalk", "stalks",
	"fillet", "fillets",
	"dozen",
)

var foodKeywords = toSet(
	"flour", "sugar", "salt", "pepper", "butter", "oil", "egg", "eggs",
	"milk", "cream", "cheese", "garlic", "onion", "onions", "shallot",
	"tomato", "tomatoes", "chicken", "beef", "pork", "lamb", "turkey",
	"bacon", "sausage", "fish", "salmon", "tuna", "shrimp", "tofu",
	"rice", "pasta", "noodles", "bread", "oats", "water", "stock", "broth",
	"vanilla", "baking", "yeast", "honey", "syrup", "lemon", "lime",
	"orange", "apple", "apples", "banana", "bananas", "berries",
	"parsley", "basil", "cilantro", "oregano", "thyme", "rosemary",
	"cinnamon", "cumin", "paprika", "nutmeg", "ginger", "chili",
	"potato", "potatoes", "carrot", "carrots", "celery", "spinach",
	"lettuce", "cabbage", "broccoli", "zucchini", "mushroom", "mushrooms",
	"beans", "lentils", "chickpeas", "corn", "peas",
	"vinegar", "yogurt", "mayonnaise", "mustard", "ketchup", "soy",
	"chocolate", "cocoa", "nuts", "almonds", "walnuts", "pecans", "peanut",
)

// Lines starting with these words read as method steps, not ingredients.
var instructionVerbs = toSet(
	"preheat", "mix", "stir", "bake", "cook", "heat", "add", "combine",
	"whisk", "pour", "place", "remove", "serve", "bring", "reduce",
	"simmer", "boil", "cut", "chop", "season", "let", "cover", "transfer",
	"spread", "fold", "beat", "sprinkle", "drain", "roll", "knead", "fry",
	"saute", "grill", "roast", "set", "allow", "until", "using", "then",
	"meanwhile", "repeat", "garnish", "blend", "mash", "toss", "arrange",
	"line", "grease", "cool", "refrigerate", "chill", "top", "melt",
	"return", "continue", "in", "on", "when", "once", "while", "after",
	"before", "step", "enjoy",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
