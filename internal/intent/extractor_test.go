package intent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kalambet/larder/internal/jsonextract"
	"github.com/kalambet/larder/internal/ollama"
)

// mockChatter implements OllamaChatter for testing.
type mockChatter struct {
	response string
	err      error
	delay    time.Duration

	gotSchema *ollama.Schema
	calls     int
}

func (m *mockChatter) Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error) {
	m.calls++
	m.gotSchema = jsonSchema
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.response, m.err
}

func TestInterpret_AddMeal(t *testing.T) {
	mock := &mockChatter{
		response: `{"intent":"add_meal","entities":{"food":"tacos","mealType":"dinner","day":"friday"},"response":"Tacos on Friday it is.","confidence":0.9}`,
	}
	e := NewExtractor(mock, "llama3.2")
	got, err := e.Interpret(context.Background(), "put tacos on friday's dinner", nil, wednesday)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}

	if got.Intent != TagAddMeal {
		t.Errorf("Intent = %q, want %q", got.Intent, TagAddMeal)
	}
	if got.Response != "Tacos on Friday it is." {
		t.Errorf("Response = %q", got.Response)
	}
	if got.Confidence == nil || *got.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", got.Confidence)
	}
	if food, _ := got.String("food"); food != "tacos" {
		t.Errorf("food = %q, want tacos", food)
	}
	if mock.gotSchema == nil || mock.gotSchema.Properties["intent"].Type != "string" {
		t.Error("expected an interpretation schema to be sent as the format")
	}
}

func TestInterpret_ProseAroundJSON(t *testing.T) {
	mock := &mockChatter{
		response: "Sure! Here you go:\n```json\n{\"intent\":\"greeting\",\"entities\":{}}\n```\nAnything else?",
	}
	e := NewExtractor(mock, "llama3.2")
	got, err := e.Interpret(context.Background(), "hi there", nil, wednesday)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if got.Intent != TagGreeting {
		t.Errorf("Intent = %q, want %q", got.Intent, TagGreeting)
	}
}

func TestInterpret_MalformedJSON(t *testing.T) {
	mock := &mockChatter{
		response: `not valid json {{{`,
	}
	e := NewExtractor(mock, "llama3.2")
	_, err := e.Interpret(context.Background(), "some query", nil, wednesday)

	var xe *jsonextract.ExtractionError
	if !errors.As(err, &xe) {
		t.Fatalf("err = %v, want *jsonextract.ExtractionError", err)
	}
	if xe.Length != len(mock.response) {
		t.Errorf("Length = %d, want %d", xe.Length, len(mock.response))
	}
}

func TestInterpret_MissingIntentIsUnknown(t *testing.T) {
	mock := &mockChatter{response: `{"entities":{"food":"soup"}}`}
	e := NewExtractor(mock, "llama3.2")
	got, err := e.Interpret(context.Background(), "soup", nil, wednesday)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if got.Intent != TagUnknown {
		t.Errorf("Intent = %q, want %q", got.Intent, TagUnknown)
	}
}

func TestInterpret_CallerCancellation(t *testing.T) {
	mock := &mockChatter{
		response: `{"intent":"help"}`,
		delay:    5 * time.Second,
	}
	e := NewExtractor(mock, "llama3.2")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.Interpret(ctx, "query", nil, wednesday)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Interpret took %v after cancellation", elapsed)
	}
}

func TestInterpret_OllamaDown(t *testing.T) {
	mock := &mockChatter{
		err: fmt.Errorf("connection refused"),
	}
	e := NewExtractor(mock, "llama3.2")
	if _, err := e.Interpret(context.Background(), "hello", nil, wednesday); err == nil {
		t.Fatal("expected error when Ollama is down")
	}
}

func TestInterpret_EmptyUtterance(t *testing.T) {
	mock := &mockChatter{response: `{"intent":"help"}`}
	e := NewExtractor(mock, "llama3.2")
	_, err := e.Interpret(context.Background(), "   ", nil, wednesday)

	if !errors.Is(err, ErrEmptyUtterance) {
		t.Errorf("err = %v, want ErrEmptyUtterance", err)
	}
	if mock.calls != 0 {
		t.Errorf("chat called %d times for empty utterance", mock.calls)
	}
}
