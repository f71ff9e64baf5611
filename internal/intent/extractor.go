package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/larder/internal/ollama"
)

// OllamaChatter is the interface for chat completion via Ollama.
type OllamaChatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// ErrEmptyUtterance is returned when there is nothing to interpret.
var ErrEmptyUtterance = errors.New("empty utterance")

// Extractor asks a local LLM for an Interpretation of one utterance.
type Extractor struct {
	client OllamaChatter
	model  string
}

// NewExtractor creates an Extractor using the given Ollama client and model name.
func NewExtractor(client OllamaChatter, model string) *Extractor {
	return &Extractor{client: client, model: model}
}

// Interpret returns the model's interpretation of utterance. The reply is
// recovered with jsonextract, so prose around the object is tolerated. A
// reply with no recoverable JSON returns a *jsonextract.ExtractionError.
// There is no retry; the caller decides what a failed turn means.
func (e *Extractor) Interpret(ctx context.Context, utterance string, history []ollama.Message, now time.Time) (Interpretation, error) {
	if strings.TrimSpace(utterance) == "" {
		return Interpretation{}, ErrEmptyUtterance
	}

	messages := BuildPrompt(utterance, history, now)

	raw, err := e.client.Chat(ctx, e.model, messages, interpretationSchema())
	if err != nil {
		return Interpretation{}, fmt.Errorf("interpretation chat: %w", err)
	}

	in, err := Decode(raw)
	if err != nil {
		slog.Warn("no interpretation in LLM response", "error", err, "response_len", len(raw))
		return Interpretation{}, err
	}
	return in, nil
}

// interpretationSchema returns the Ollama JSON schema for structured interpretation output.
func interpretationSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"intent":     {Type: "string", Description: "The classified intent", Enum: append(append([]string{}, Tags...), TagUnknown)},
			"entities":   {Type: "object", Description: "Entities extracted from the request"},
			"response":   {Type: "string", Description: "Short reply to the user"},
			"confidence": {Type: "number", Description: "Confidence between 0 and 1"},
		},
		Required: []string{"intent", "entities"},
	}
}
