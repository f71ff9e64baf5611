package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/larder/internal/storage"
	"github.com/kalambet/larder/internal/tools"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := tools.NewRegistry(tools.Deps{Pantry: store, Recipes: store, Meals: store, Grocery: store})
	return MCPDeps{
		Tools:     reg,
		Assistant: &mockTurner{reply: "Added rice to your pantry."},
		UserID:    "local",
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_CatalogCall(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpCatalogTool(deps, "add_pantry_item")

	req := makeCallToolRequest("add_pantry_item", map[string]interface{}{
		"name":     "rice",
		"quantity": 2,
		"unit":     "kg",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var item storage.PantryItem
	if err := json.Unmarshal([]byte(toolText(t, result)), &item); err != nil {
		t.Fatalf("result is not a pantry item: %v", err)
	}
	if item.Name != "rice" || item.ID == "" {
		t.Errorf("item = %+v", item)
	}

	items, err := store.ListPantryItems(context.Background(), "local")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 pantry item for the MCP user, got %d", len(items))
	}
}

func TestMCPTool_CatalogCall_InvalidArguments(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpCatalogTool(deps, "add_pantry_item")

	result, err := handler(context.Background(), makeCallToolRequest("add_pantry_item", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error result, got %s", toolText(t, result))
	}
}

func TestMCPTool_Ask(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	turner := deps.Assistant.(*mockTurner)
	handler := mcpAsk(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ask_larder", map[string]interface{}{
		"utterance": "put rice in the pantry",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); got != "Added rice to your pantry." {
		t.Errorf("reply = %q", got)
	}
	calls := turner.recorded()
	if len(calls) != 1 || calls[0].UserID != "local" || calls[0].Utterance != "put rice in the pantry" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestMCPTool_Ask_MissingUtterance(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	result, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask_larder", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

func TestMCPTool_Ask_ModelDown(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Assistant = &mockTurner{err: errors.New("connection refused")}
	result, err := mcpAsk(deps)(context.Background(), makeCallToolRequest("ask_larder", map[string]interface{}{
		"utterance": "hi",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(toolText(t, result), "connection refused") {
		t.Fatalf("result = %+v", result)
	}
}

func TestMCPResource_Tools(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	contents, err := mcpResourceTools(deps)(context.Background(), makeReadResourceRequest("larder://tools"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var defs []tools.Definition
	if err := json.Unmarshal([]byte(tc.Text), &defs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(defs) != len(deps.Tools.Definitions()) {
		t.Errorf("resource lists %d tools, want %d", len(defs), len(deps.Tools.Definitions()))
	}
}

func TestMCPToolFor(t *testing.T) {
	def := tools.Definition{
		Name:        "add_meal",
		Description: "Add a meal",
		Parameters: tools.Schema{
			Type: "object",
			Properties: map[string]tools.Property{
				"food":      {Type: "string", Description: "Dish"},
				"meal_type": {Type: "string", Enum: []string{"breakfast", "lunch", "dinner", "snack"}},
				"servings":  {Type: "integer"},
				"tags":      {Type: "array", Items: &tools.Property{Type: "string"}},
			},
			Required: []string{"food", "meal_type"},
		},
	}

	tool := mcpToolFor(def)
	if tool.Name != "add_meal" || tool.Description != "Add a meal" {
		t.Errorf("tool = %s / %s", tool.Name, tool.Description)
	}
	for _, name := range []string{"food", "meal_type", "servings", "tags"} {
		if _, ok := tool.InputSchema.Properties[name]; !ok {
			t.Errorf("property %q missing", name)
		}
	}
	if len(tool.InputSchema.Required) != 2 {
		t.Errorf("required = %v, want food and meal_type", tool.InputSchema.Required)
	}
	servings, _ := tool.InputSchema.Properties["servings"].(map[string]any)
	if servings["type"] != "number" {
		t.Errorf("servings schema = %v", servings)
	}
}

func TestNewMCPServer_WithoutAssistant(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Assistant = nil
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	addHandler := mcpCatalogTool(deps, "add_pantry_item")
	listHandler := mcpCatalogTool(deps, "get_pantry")

	var wg sync.WaitGroup
	errs := make(chan string, 20)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := addHandler(context.Background(), makeCallToolRequest("add_pantry_item", map[string]interface{}{
				"name": "beans",
			}))
			if err != nil {
				errs <- err.Error()
			} else if res.IsError {
				errs <- "add failed"
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := listHandler(context.Background(), makeCallToolRequest("get_pantry", nil))
			if err != nil {
				errs <- err.Error()
			} else if res.IsError {
				errs <- "list failed"
			}
		}()
	}

	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatalf("concurrent call failed: %s", msg)
	}

	items, _ := store.ListPantryItems(context.Background(), "local")
	if len(items) != 5 {
		t.Errorf("pantry has %d items, want 5", len(items))
	}
}
