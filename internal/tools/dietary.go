package tools

import (
	"regexp"
	"sort"
	"strings"
)

// Supported diets for check_dietary_compliance.
const (
	DietVegetarian = "vegetarian"
	DietVegan      = "vegan"
	DietGlutenFree = "gluten-free"
)

var diets = []string{DietVegetarian, DietVegan, DietGlutenFree}

type dietRule struct {
	forbidden *regexp.Regexp
	// allowed phrases are removed before matching, so "peanut butter"
	// does not trip the dairy check.
	allowed *regexp.Regexp
}

var (
	meatRe = `beef|pork|chicken|turkey|lamb|veal|bacon|ham|sausages?|prosciutto|salami|pepperoni|chorizo|duck|venison|` +
		`fish|salmon|tuna|cod|halibut|tilapia|shrimps?|prawns?|crab|lobster|anchov(?:y|ies)|clams?|mussels?|oysters?|scallops?|` +
		`gelatin|lard|fish sauce|oyster sauce`
	animalRe = `milk|butter|cheese|cream|yogurt|yoghurt|eggs?|honey|ghee|whey|buttermilk|mayonnaise|parmesan|mozzarella`
	glutenRe = `wheat|flour|bread|breadcrumbs|panko|pasta|spaghetti|macaroni|noodles|barley|rye|couscous|semolina|` +
		`bulgur|farro|seitan|soy sauce|beer|crackers|tortillas?|pita|croutons`

	dietRules = map[string]dietRule{
		DietVegetarian: {
			forbidden: regexp.MustCompile(`\b(?:` + meatRe + `)\b`),
		},
		DietVegan: {
			forbidden: regexp.MustCompile(`\b(?:` + meatRe + `|` + animalRe + `)\b`),
			allowed:   regexp.MustCompile(`\b(?:peanut|almond|soy|oat|coconut|cashew|rice|vegan)\s+(?:butter|milk|cream|yogurt|cheese|mayonnaise)\b|\bbutternut\b|\beggplants?\b`),
		},
		DietGlutenFree: {
			forbidden: regexp.MustCompile(`\b(?:` + glutenRe + `)\b`),
			allowed:   regexp.MustCompile(`\bgluten[- ]free\s+\w+|\b(?:rice|almond|coconut|corn|chickpea|buckwheat|tapioca|oat)\s+(?:flour|noodles|pasta|tortillas?|crackers)\b|\btamari\b`),
		},
	}
)

// DietCheck is the advisory verdict for one diet.
type DietCheck struct {
	Diet       string   `json:"diet"`
	Compliant  bool     `json:"compliant"`
	Violations []string `json:"violations"`
}

// CheckDiet scans ingredient names for keywords that conflict with diet.
// It is a keyword heuristic, not an allergen guarantee.
func CheckDiet(diet string, ingredients []string) DietCheck {
	rule := dietRules[diet]
	seen := map[string]bool{}
	for _, ing := range ingredients {
		text := strings.ToLower(ing)
		if rule.allowed != nil {
			text = rule.allowed.ReplaceAllString(text, " ")
		}
		if rule.forbidden.MatchString(text) {
			seen[ing] = true
		}
	}
	violations := make([]string, 0, len(seen))
	for ing := range seen {
		violations = append(violations, ing)
	}
	sort.Strings(violations)
	return DietCheck{Diet: diet, Compliant: len(violations) == 0, Violations: violations}
}
