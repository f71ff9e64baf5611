package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/larder/internal/tools"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Tools     Catalog
	Assistant Turner // optional; if nil, ask_larder is not registered
	UserID    string // every MCP call acts as this user
}

// NewMCPServer creates an MCP server exposing the tool catalog, an
// assistant tool and a catalog resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"larder",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("larder: pantry, recipes, meal plans and grocery lists for a local kitchen."),
		server.WithRecovery(),
	)

	for _, def := range deps.Tools.Definitions() {
		s.AddTool(mcpToolFor(def), mcpCatalogTool(deps, def.Name))
	}

	if deps.Assistant != nil {
		s.AddTool(
			mcp.NewTool("ask_larder",
				mcp.WithDescription("Ask the kitchen assistant in plain language. It may read or change pantry, recipes, meal plans and grocery lists."),
				mcp.WithString("utterance", mcp.Description("What the user said"), mcp.Required()),
			),
			mcpAsk(deps),
		)
	}

	s.AddResource(
		mcp.NewResource(
			"larder://tools",
			"Tool Catalog",
			mcp.WithResourceDescription("Every catalog tool with its parameter schema"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTools(deps),
	)

	return s
}

// mcpToolFor renders a catalog definition as an MCP tool. Nested item and
// object schemas are left to the registry's own validation.
func mcpToolFor(def tools.Definition) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}

	required := make(map[string]bool, len(def.Parameters.Required))
	for _, name := range def.Parameters.Required {
		required[name] = true
	}

	names := make([]string, 0, len(def.Parameters.Properties))
	for name := range def.Parameters.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := def.Parameters.Properties[name]
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if required[name] {
			props = append(props, mcp.Required())
		}
		switch p.Type {
		case "number", "integer":
			opts = append(opts, mcp.WithNumber(name, props...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(name, props...))
		case "array":
			opts = append(opts, mcp.WithArray(name, props...))
		case "object":
			opts = append(opts, mcp.WithObject(name, props...))
		default:
			if len(p.Enum) > 0 {
				props = append(props, mcp.Enum(p.Enum...))
			}
			opts = append(opts, mcp.WithString(name, props...))
		}
	}

	return mcp.NewTool(def.Name, opts...)
}

func mcpCatalogTool(deps MCPDeps, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		res := deps.Tools.Execute(ctx, name, args, tools.UserContext{UserID: deps.UserID})
		if !res.Success {
			return mcpError(res.Error), nil
		}
		b, err := json.Marshal(res.Data)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		utterance, err := req.RequireString("utterance")
		if err != nil {
			return mcpError(err.Error()), nil
		}

		res, err := deps.Assistant.Turn(ctx, tools.UserContext{UserID: deps.UserID}, utterance, nil)
		if err != nil {
			return mcpError(fmt.Sprintf("assistant unavailable: %v", err)), nil
		}
		return mcpText(res.Reply), nil
	}
}

func mcpResourceTools(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Tools.Definitions())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
