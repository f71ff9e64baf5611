// Package dispatch performs the domain operations an interpretation asks
// for and produces the single acknowledgement shown to the user.
//
// The Dispatcher is stateless: every durable effect goes through the tool
// registry, so the same Dispatcher serves all users concurrently.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/kalambet/larder/internal/intent"
	"github.com/kalambet/larder/internal/metrics"
	"github.com/kalambet/larder/internal/tools"
)

const apology = "Sorry, something went wrong while handling that. Please try again."

// Executor runs catalog tools. *tools.Registry implements it.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]any, uc tools.UserContext) tools.Result
}

// ActionResult records one tool call made while dispatching.
type ActionResult struct {
	Tool    string `json:"tool"`
	Target  string `json:"target,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StagedMeal is a meal handed to the meal-planning surface for
// confirmation. Nothing has been written for it.
type StagedMeal struct {
	Food     string `json:"food"`
	MealType string `json:"meal_type"`
	Date     string `json:"date"`
}

// Outcome is the result of dispatching one interpretation.
type Outcome struct {
	Intent  string `json:"intent"`
	Success bool   `json:"success"`
	Message string `json:"message"`

	Actions            []ActionResult `json:"actions,omitempty"`
	Navigate           string         `json:"navigate,omitempty"`
	StagedMeal         *StagedMeal    `json:"staged_meal,omitempty"`
	NeedsClarification bool           `json:"needs_clarification,omitempty"`
	Data               any            `json:"data,omitempty"`
}

// Dispatcher maps parsed actions onto tool calls.
type Dispatcher struct {
	exec     Executor
	now      func() time.Time
	logger   *slog.Logger
	listName string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock sets the time source used to resolve day references.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithListName sets the grocery list shopping items go to.
func WithListName(name string) Option {
	return func(d *Dispatcher) { d.listName = name }
}

// New creates a Dispatcher over exec.
func New(exec Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		exec:     exec,
		now:      time.Now,
		logger:   slog.Default(),
		listName: tools.DefaultListName,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch performs the interpretation for uc. It never panics: a failure
// inside a branch degrades to a generic apology and a logged error.
//
// The acknowledgement is the interpretation's own response when one was
// given and everything succeeded; otherwise it is generated from what
// actually happened, so failures and partial counts are never hidden.
func (d *Dispatcher) Dispatch(ctx context.Context, uc tools.UserContext, in intent.Interpretation) (out Outcome) {
	tag := in.Tag()
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("dispatch panicked", "intent", tag, "user_id", uc.UserID, "panic", p, "stack", string(debug.Stack()))
			out = Outcome{Intent: tag, Message: apology}
		}
		metrics.Intents.WithLabelValues(metricLabel(out.Intent)).Inc()
	}()

	action, err := intent.Parse(in)
	if err != nil {
		var ee *intent.EntityError
		if errors.As(err, &ee) {
			return clarify(tag, missingEntityQuestion(ee))
		}
		d.logger.Warn("interpretation rejected", "intent", tag, "error", err)
		return Outcome{Intent: tag, Message: apology}
	}

	out = d.run(ctx, uc, action)
	out.Intent = action.Intent()
	if out.Success && in.Response != "" {
		out.Message = in.Response
	}
	d.logger.Debug("dispatched", "intent", out.Intent, "user_id", uc.UserID, "success", out.Success, "actions", len(out.Actions))
	return out
}

func (d *Dispatcher) run(ctx context.Context, uc tools.UserContext, action intent.Action) Outcome {
	switch a := action.(type) {
	case intent.AddShoppingItems:
		return d.addShoppingItems(ctx, uc, a)
	case intent.Navigate:
		return navigate(a)
	case intent.AddMeal:
		return d.addMeal(a)
	case intent.ClearMeals:
		return d.clearMeals(ctx, uc, a)
	case intent.GenerateMeals:
		return d.generateMeals(ctx, uc, a)
	case intent.MoveMeal:
		return d.moveMeal(ctx, uc, a)
	case intent.SwapMeals:
		return d.swapMeals(ctx, uc, a)
	case intent.SearchRecipes:
		return d.searchRecipes(ctx, uc, a)
	case intent.DeleteRecipe:
		return d.deleteRecipe(ctx, uc, a)
	case intent.AddRecipeToShoppingList:
		return d.addRecipeToShoppingList(ctx, uc, a)
	case intent.Help:
		return Outcome{Success: true, Message: helpMessage}
	case intent.Greeting:
		return Outcome{Success: true, Message: greetingMessage}
	case intent.Unrecognized:
		return Outcome{Success: true, Message: unrecognizedMessage}
	default:
		panic(fmt.Sprintf("dispatch: unhandled action %T", action))
	}
}

// call executes one tool and records it on out.
func (d *Dispatcher) call(ctx context.Context, uc tools.UserContext, out *Outcome, name, target string, args map[string]any) tools.Result {
	res := d.exec.Execute(ctx, name, args, uc)
	out.Actions = append(out.Actions, ActionResult{Tool: name, Target: target, Success: res.Success, Error: res.Error})
	return res
}

func clarify(tag, question string) Outcome {
	return Outcome{Intent: tag, Message: question, NeedsClarification: true}
}

// decodeData converts a tool's result data into v.
func decodeData(data any, v any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding tool result: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding tool result: %w", err)
	}
	return nil
}

// metricLabel keeps the intent label set bounded.
func metricLabel(tag string) string {
	for _, t := range intent.Tags {
		if t == tag {
			return tag
		}
	}
	return "unrecognized"
}
