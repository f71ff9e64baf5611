package intent

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/larder/internal/ollama"
)

const interpretPromptTemplate = `You are the command interpreter for a kitchen assistant. Read the user's request and the conversation so far. Your output must be ONLY a single valid JSON object of the form:

{"intent": "<intent>", "entities": {...}, "response": "<short reply to the user>", "confidence": <0..1>}

Do not include any other text, prose, or markdown.`

const assistantPromptTemplate = `You are a kitchen assistant that manages the user's pantry, recipes, meal plan and shopping lists.

You may call the provided tools to look things up or change data. If native tool calls are unavailable, call a tool by replying with ONLY:

{"tool": "<tool name>", "arguments": {...}}

When you are done, or when the request maps onto one of the intents below, reply with ONLY a JSON object:

{"intent": "<intent>", "entities": {...}, "response": "<short reply to the user>", "confidence": <0..1>}`

const intentGuide = `Intents and their entities:
- "add_shopping_item": items (list of {"name", "quantity", "unit"})
- "navigate": destination (one of: home, pantry, recipes, meal-plan, shopping-list, settings)
- "add_meal": food, mealType (breakfast, lunch, dinner, snack), day (default "today")
- "clear_meals": timeRange (e.g. "today", "friday", "this week", "next week")
- "generate_meals": timeRange
- "move_meal": fromDay, fromMealType, toDay, toMealType
- "swap_meals": fromDay, fromMealType, toDay, toMealType
- "search_recipes": recipeName
- "delete_recipe": recipeName
- "add_recipe_to_shopping_list": recipeName
- "help", "greeting": no entities
- "unknown": anything else

Rules:
- Day references stay as the user said them ("tomorrow", "next tuesday"); do not convert them to dates.
- Omit entities the user did not give. Never invent them.
- Keep "response" to one short sentence.`

// BuildPrompt constructs the chat messages for a JSON-only interpretation
// of query.
func BuildPrompt(query string, history []ollama.Message, now time.Time) []ollama.Message {
	return buildMessages(interpretPromptTemplate, nil, query, history, now)
}

// BuildAssistantPrompt constructs the chat messages for a tool-calling turn.
// toolNames lists the catalog so models without native tool support can
// still name one.
func BuildAssistantPrompt(query string, history []ollama.Message, now time.Time, toolNames []string) []ollama.Message {
	return buildMessages(assistantPromptTemplate, toolNames, query, history, now)
}

func buildMessages(template string, toolNames []string, query string, history []ollama.Message, now time.Time) []ollama.Message {
	var sb strings.Builder
	sb.WriteString(template)
	sb.WriteString("\n\n")
	sb.WriteString(intentGuide)

	if len(toolNames) > 0 {
		fmt.Fprintf(&sb, "\n\n[Tools]\n%s", strings.Join(toolNames, ", "))
	}
	fmt.Fprintf(&sb, "\n\n[Today]\n%s (%s)", now.Format(DateLayout), now.Weekday())

	messages := []ollama.Message{
		{Role: "system", Content: sb.String()},
	}

	messages = append(messages, history...)

	messages = append(messages, ollama.Message{
		Role:    "user",
		Content: query,
	})

	return messages
}
