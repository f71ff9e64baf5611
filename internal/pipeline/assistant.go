// Package pipeline runs one conversational turn: the model may call tools
// for a bounded number of rounds, and its final interpretation is
// dispatched into domain actions.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/larder/internal/dispatch"
	"github.com/kalambet/larder/internal/intent"
	"github.com/kalambet/larder/internal/jsonextract"
	"github.com/kalambet/larder/internal/metrics"
	"github.com/kalambet/larder/internal/ollama"
	"github.com/kalambet/larder/internal/tools"
)

const (
	notUnderstood = "Sorry, I didn't understand that."
	tooManyRounds = "Sorry, I couldn't finish that request. Could you break it into smaller steps?"
)

// Chatter is the model surface a turn needs. *ollama.Client implements it.
type Chatter interface {
	intent.OllamaChatter
	ChatWithTools(ctx context.Context, model string, messages []ollama.Message, tools []ollama.Tool) (ollama.Message, error)
}

// Catalog executes tools and advertises them. *tools.Registry implements it.
type Catalog interface {
	dispatch.Executor
	Definitions() []tools.Definition
}

// ToolCall records one tool the model invoked during a turn.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    tools.Result   `json:"result"`
	Native    bool           `json:"native"`
}

// TurnResult is what a turn produced for the user.
type TurnResult struct {
	Reply          string                 `json:"reply"`
	Understood     bool                   `json:"understood"`
	Interpretation *intent.Interpretation `json:"interpretation,omitempty"`
	Outcome        *dispatch.Outcome      `json:"outcome,omitempty"`
	ToolCalls      []ToolCall             `json:"tool_calls,omitempty"`
	DurationMs     int64                  `json:"duration_ms"`
}

// Assistant orchestrates model calls, tool execution and dispatch.
type Assistant struct {
	chat       Chatter
	model      string
	catalog    Catalog
	dispatcher *dispatch.Dispatcher
	extractor  *intent.Extractor
	maxRounds  int
	now        func() time.Time
	logger     *slog.Logger
}

// Config configures an Assistant. MaxToolRounds bounds how many rounds of
// tool calls one turn may make; zero or less switches to interpretation
// only, where the model is asked for JSON and never offered tools.
type Config struct {
	Model         string
	MaxToolRounds int
	Now           func() time.Time
	Logger        *slog.Logger
}

// NewAssistant wires an Assistant. The dispatcher should run over the same
// catalog so tool calls and dispatched actions see the same data.
func NewAssistant(chat Chatter, catalog Catalog, dispatcher *dispatch.Dispatcher, cfg Config) *Assistant {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Assistant{
		chat:       chat,
		model:      cfg.Model,
		catalog:    catalog,
		dispatcher: dispatcher,
		extractor:  intent.NewExtractor(chat, cfg.Model),
		maxRounds:  cfg.MaxToolRounds,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}
}

// textToolCall is the shape a model uses to call a tool in plain text.
type textToolCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Turn runs one user utterance to completion. The returned error is only
// for failures reaching the model; everything else, including replies with
// no recoverable JSON, is reported in the TurnResult.
func (a *Assistant) Turn(ctx context.Context, uc tools.UserContext, utterance string, history []ollama.Message) (res TurnResult, err error) {
	start := time.Now()
	defer func() { res.DurationMs = time.Since(start).Milliseconds() }()

	if a.maxRounds <= 0 {
		return a.interpretOnly(ctx, uc, utterance, history)
	}

	defs := a.catalog.Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	offered := OllamaTools(defs)
	messages := intent.BuildAssistantPrompt(utterance, history, a.now(), names)

	for round := 0; ; round++ {
		msg, err := a.chat.ChatWithTools(ctx, a.model, messages, offered)
		if err != nil {
			return res, fmt.Errorf("assistant chat: %w", err)
		}

		calls := nativeCalls(msg)
		var raw json.RawMessage
		if len(calls) == 0 {
			raw, calls = parseText(msg.Content)
		}

		if len(calls) > 0 {
			if round >= a.maxRounds {
				a.logger.Warn("tool rounds exhausted", "user_id", uc.UserID, "rounds", round)
				res.Reply = tooManyRounds
				return res, nil
			}
			messages = append(messages, ollama.Message{Role: "assistant", Content: msg.Content, ToolCalls: msg.ToolCalls})
			for _, c := range calls {
				c.Result = a.catalog.Execute(ctx, c.Name, c.Arguments, uc)
				res.ToolCalls = append(res.ToolCalls, c)
				messages = append(messages, ollama.Message{Role: "tool", ToolName: c.Name, Content: encodeResult(c.Result)})
			}
			continue
		}

		if raw == nil {
			// Prose after tool calls is the model answering from their results.
			if len(res.ToolCalls) > 0 && strings.TrimSpace(msg.Content) != "" {
				res.Reply = strings.TrimSpace(msg.Content)
				res.Understood = true
				return res, nil
			}
			metrics.ExtractionFailures.Inc()
			a.logger.Info("no JSON in model reply", "user_id", uc.UserID, "reply_len", len(msg.Content))
			res.Reply = notUnderstood
			return res, nil
		}

		var in intent.Interpretation
		if err := json.Unmarshal(raw, &in); err != nil || strings.TrimSpace(in.Intent) == "" {
			in = intent.Interpretation{Intent: intent.TagUnknown, Response: in.Response}
		}
		return a.dispatch(ctx, uc, in, res), nil
	}
}

func (a *Assistant) interpretOnly(ctx context.Context, uc tools.UserContext, utterance string, history []ollama.Message) (TurnResult, error) {
	in, err := a.extractor.Interpret(ctx, utterance, history, a.now())
	var xe *jsonextract.ExtractionError
	switch {
	case errors.As(err, &xe), errors.Is(err, intent.ErrEmptyUtterance):
		metrics.ExtractionFailures.Inc()
		return TurnResult{Reply: notUnderstood}, nil
	case err != nil:
		return TurnResult{}, err
	}
	return a.dispatch(ctx, uc, in, TurnResult{}), nil
}

func (a *Assistant) dispatch(ctx context.Context, uc tools.UserContext, in intent.Interpretation, res TurnResult) TurnResult {
	out := a.dispatcher.Dispatch(ctx, uc, in)
	res.Interpretation = &in
	res.Outcome = &out
	res.Reply = out.Message
	res.Understood = true
	return res
}

func nativeCalls(msg ollama.Message) []ToolCall {
	calls := make([]ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, ToolCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments, Native: true})
	}
	return calls
}

// parseText recovers JSON from a text reply. A {"tool": ...} object is a
// tool call; any other object is returned raw for interpretation.
func parseText(content string) (json.RawMessage, []ToolCall) {
	raw, _, err := jsonextract.ExtractRaw(content)
	if err != nil {
		return nil, nil
	}
	var tc textToolCall
	if json.Unmarshal(raw, &tc) == nil && tc.Tool != "" {
		return nil, []ToolCall{{Name: tc.Tool, Arguments: tc.Arguments}}
	}
	return raw, nil
}

func encodeResult(r tools.Result) string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return string(b)
}

// OllamaTools renders catalog definitions as Ollama function tools.
func OllamaTools(defs []tools.Definition) []ollama.Tool {
	out := make([]ollama.Tool, len(defs))
	for i, d := range defs {
		out[i] = ollama.Tool{
			Type: "function",
			Function: ollama.ToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		}
	}
	return out
}
