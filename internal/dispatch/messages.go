package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/larder/internal/intent"
)

const (
	greetingMessage     = "Hi! What can I help you cook up today?"
	unrecognizedMessage = "Sorry, I'm not sure how to help with that. Try asking me to add something to your shopping list or to plan a meal."
	helpMessage         = "I can add items to your shopping list, plan, move, swap or clear meals, " +
		"fill your week with recipes, find or delete recipes, add a recipe's ingredients to your shopping list, " +
		"and open any page of the app. Try \"add a gallon of milk\" or \"plan dinners for next week\"."
)

var entityPrompts = map[string]string{
	"items":        "what to add",
	"destination":  "where to go",
	"food":         "what to eat",
	"mealType":     "which meal (breakfast, lunch, dinner or snack)",
	"timeRange":    "which days",
	"fromDay":      "which day the meal is on now",
	"fromMealType": "which meal it is now",
	"toDay":        "which day it should go to",
	"toMealType":   "which meal it should become",
	"recipeName":   "which recipe",
}

// missingEntityQuestion phrases an EntityError as a clarifying question.
func missingEntityQuestion(e *intent.EntityError) string {
	if e.Reason != "" {
		return fmt.Sprintf("Sorry, %s. Could you say that another way?", e.Reason)
	}
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		if p, ok := entityPrompts[m]; ok {
			parts = append(parts, p)
		} else {
			parts = append(parts, m)
		}
	}
	return fmt.Sprintf("Could you tell me %s?", joinAnd(parts))
}

// describeDay renders a date relative to now: "today", "tomorrow" or
// "on Friday, March 6".
func describeDay(day, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case day.Equal(today):
		return "today"
	case day.Equal(today.AddDate(0, 0, 1)):
		return "tomorrow"
	default:
		return "on " + day.Format("Monday, January 2")
	}
}

func describeRange(start, end, now time.Time) string {
	if start.Equal(end) {
		return "for " + strings.TrimPrefix(describeDay(start, now), "on ")
	}
	return fmt.Sprintf("from %s to %s", start.Format("Mon Jan 2"), end.Format("Mon Jan 2"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func joinAnd(items []string) string { return joinWith(items, "and") }
func joinOr(items []string) string  { return joinWith(items, "or") }

func joinWith(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " " + conj + " " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", " + conj + " " + items[len(items)-1]
	}
}
