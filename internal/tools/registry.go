// Package tools exposes kitchen operations as named, schema-described tools
// that a language model (or the intent dispatcher) can invoke with JSON
// arguments on behalf of a single user.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kalambet/larder/internal/metrics"
)

// UserContext identifies the user every store call is scoped to.
type UserContext struct {
	UserID string `json:"user_id"`
}

// Schema is the JSON-Schema subset used to describe tool parameters.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single parameter.
type Property struct {
	Type        string              `json:"type,omitempty"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
	Format      string              `json:"format,omitempty"`
}

// Definition is the catalog entry a model sees for one tool.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Result is the structured outcome of one tool call. Errors never escape
// Execute as Go errors; they are reported here.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler runs one tool. args has already been validated against the
// tool's schema.
type Handler func(ctx context.Context, args map[string]any, uc UserContext) (any, error)

type tool struct {
	def     Definition
	handler Handler
	schema  *gojsonschema.Schema
}

// Deps are the capabilities a Registry may use. Tools whose capabilities
// are nil are left out of the catalog.
type Deps struct {
	Pantry  PantryStore
	Recipes RecipeStore
	Meals   MealPlanStore
	Grocery GroceryStore

	// Now defaults to time.Now. Date defaults ("today") are computed from it.
	Now    func() time.Time
	Logger *slog.Logger
}

// Registry is the fixed tool catalog. It is built once by NewRegistry and
// is read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	tools  map[string]*tool
	order  []string
	deps   Deps
	logger *slog.Logger
}

// NewRegistry builds the catalog from the supplied capabilities.
func NewRegistry(deps Deps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := &Registry{
		tools:  make(map[string]*tool),
		deps:   deps,
		logger: deps.Logger,
	}

	if deps.Pantry != nil {
		r.registerPantryTools()
	}
	if deps.Recipes != nil {
		r.registerRecipeTools()
	}
	if deps.Meals != nil {
		r.registerMealTools()
	}
	if deps.Grocery != nil {
		r.registerGroceryTools()
	}
	r.registerUtilityTools()
	return r
}

func (r *Registry) register(def Definition, h Handler) {
	if _, dup := r.tools[def.Name]; dup {
		panic(fmt.Sprintf("tools: duplicate tool %q", def.Name))
	}
	if def.Parameters.Type == "" {
		def.Parameters.Type = "object"
	}
	if def.Parameters.Properties == nil {
		def.Parameters.Properties = map[string]Property{}
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.Parameters))
	if err != nil {
		panic(fmt.Sprintf("tools: invalid schema for %q: %v", def.Name, err))
	}
	r.tools[def.Name] = &tool{def: def, handler: h, schema: schema}
	r.order = append(r.order, def.Name)
}

// Definitions returns the catalog in registration order. The slice is a
// fresh copy on every call.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].def)
	}
	return defs
}

// Has reports whether name is in the catalog.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Execute runs the named tool for uc. It never panics and never returns a
// Go error: every failure is a Result with Success false.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, uc UserContext) (res Result) {
	start := time.Now()
	outcome := metrics.OutcomeSuccess
	defer func() {
		metrics.ToolCalls.WithLabelValues(name, outcome).Inc()
		if outcome != metrics.OutcomeNotFound {
			metrics.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}
	}()

	t, ok := r.tools[name]
	if !ok {
		outcome = metrics.OutcomeNotFound
		r.logger.Warn("tool not in catalog", "tool", name, "user_id", uc.UserID)
		return Result{Error: fmt.Sprintf("Tool not found: %s", name)}
	}
	if uc.UserID == "" {
		outcome = metrics.OutcomeInvalid
		return Result{Error: "user context is required"}
	}
	if args == nil {
		args = map[string]any{}
	}

	if err := validate(t.schema, args); err != nil {
		outcome = metrics.OutcomeInvalid
		r.logger.Info("tool arguments rejected", "tool", name, "user_id", uc.UserID, "error", err)
		return Result{Error: err.Error()}
	}

	defer func() {
		if p := recover(); p != nil {
			outcome = metrics.OutcomePanic
			r.logger.Error("tool panicked", "tool", name, "user_id", uc.UserID, "panic", p, "stack", string(debug.Stack()))
			res = Result{Error: fmt.Sprintf("%s failed unexpectedly", name)}
		}
	}()

	data, err := t.handler(ctx, args, uc)
	if err != nil {
		outcome = metrics.OutcomeFailure
		r.logger.Info("tool failed", "tool", name, "user_id", uc.UserID, "error", err)
		return Result{Error: err.Error()}
	}
	r.logger.Debug("tool executed", "tool", name, "user_id", uc.UserID, "duration", time.Since(start))
	return Result{Success: true, Data: data}
}

func validate(schema *gojsonschema.Schema, args map[string]any) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("validating arguments: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		msgs[i] = desc.String()
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}

func (r *Registry) today() string {
	return r.deps.Now().Format("2006-01-02")
}
