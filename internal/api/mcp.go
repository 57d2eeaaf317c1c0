package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/thoth/internal/enhance"
	"github.com/kalambet/thoth/internal/observe"
	"github.com/kalambet/thoth/internal/prompts"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *enhance.Service
	History HistoryReader // optional; the history resource is omitted when nil
	Metrics *observe.Metrics
	Version string
}

// NewMCPServer creates an MCP server with the thoth tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	if deps.Metrics == nil {
		deps.Metrics = observe.Noop()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	s := server.NewMCPServer(
		"thoth",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("thoth: local text enhancement through an Ollama model and prompt templates."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("enhance_text",
			mcp.WithDescription("Rewrite text with a local model using a prompt template."),
			mcp.WithString("text", mcp.Description("The text to enhance"), mcp.Required()),
			mcp.WithString("model", mcp.Description("Model name; defaults to the configured model")),
			mcp.WithString("prompt_id", mcp.Description("Prompt template id (see list_prompts)")),
			mcp.WithString("prompt", mcp.Description("Inline template containing {text}; overrides prompt_id")),
		),
		instrument(deps, "enhance_text", mcpEnhanceText(deps)),
	)

	s.AddTool(
		mcp.NewTool("list_models",
			mcp.WithDescription("List the models installed on the local inference server."),
		),
		instrument(deps, "list_models", mcpListModels(deps)),
	)

	s.AddTool(
		mcp.NewTool("list_prompts",
			mcp.WithDescription("List built-in and custom prompt templates."),
		),
		instrument(deps, "list_prompts", mcpListPrompts(deps)),
	)

	s.AddTool(
		mcp.NewTool("save_prompt",
			mcp.WithDescription("Save a custom prompt template. The body must contain {text} exactly once."),
			mcp.WithString("label", mcp.Description("Unique display label"), mcp.Required()),
			mcp.WithString("body", mcp.Description("Template body"), mcp.Required()),
			mcp.WithBoolean("capture_clipboard", mcp.Description("Include clipboard contents as context")),
			mcp.WithBoolean("capture_selection", mcp.Description("Include the selected text as context")),
		),
		instrument(deps, "save_prompt", mcpSavePrompt(deps)),
	)

	s.AddTool(
		mcp.NewTool("delete_prompt",
			mcp.WithDescription("Delete a custom prompt template."),
			mcp.WithString("id", mcp.Description("Template id"), mcp.Required()),
		),
		instrument(deps, "delete_prompt", mcpDeletePrompt(deps)),
	)

	s.AddTool(
		mcp.NewTool("check_available",
			mcp.WithDescription("Report whether the local inference server is reachable."),
		),
		instrument(deps, "check_available", mcpCheckAvailable(deps)),
	)

	s.AddResource(
		mcp.NewResource(
			"thoth://prompts",
			"Prompt Templates",
			mcp.WithResourceDescription("All prompt templates as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourcePrompts(deps),
	)

	if deps.History != nil {
		s.AddResource(
			mcp.NewResource(
				"thoth://history",
				"Recent Enhancements",
				mcp.WithResourceDescription("Last 10 enhancements (metadata only)"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceHistory(deps),
		)
	}

	return s
}

// instrument counts every tool call by outcome.
func instrument(deps MCPDeps, tool string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := h(ctx, req)
		status := observe.StatusOK
		if err != nil || (res != nil && res.IsError) {
			status = observe.StatusError
		}
		deps.Metrics.RecordToolCall(ctx, tool, status)
		return res, err
	}
}

func mcpEnhanceText(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		er := deps.Service.WithDefaults(enhance.Request{
			Text:       text,
			Model:      req.GetString("model", ""),
			PromptID:   req.GetString("prompt_id", ""),
			PromptBody: req.GetString("prompt", ""),
		})
		res, err := deps.Service.Enhance(ctx, er)
		if err != nil {
			_, typ := classify(err)
			return mcpError(fmt.Sprintf("%s: %v", typ, err)), nil
		}
		return mcpText(res.Text), nil
	}
}

func mcpListModels(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		models, err := deps.Service.ListModels(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing models: %v", err)), nil
		}
		if models == nil {
			models = []string{}
		}
		return mcpJSON(models)
	}
}

func mcpListPrompts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := deps.Service.ListPrompts()
		if err != nil {
			return mcpError(fmt.Sprintf("listing prompts: %v", err)), nil
		}
		return mcpJSON(list)
	}
}

func mcpSavePrompt(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label, err := req.RequireString("label")
		if err != nil {
			return mcpError("label is required"), nil
		}
		body, err := req.RequireString("body")
		if err != nil {
			return mcpError("body is required"), nil
		}

		t, err := deps.Service.SavePrompt(label, body, prompts.ContextFlags{
			Clipboard: req.GetBool("capture_clipboard", false),
			Selection: req.GetBool("capture_selection", false),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("saving prompt: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Saved prompt %s", t.ID)), nil
	}
}

func mcpDeletePrompt(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		if err := deps.Service.DeletePrompt(id); err != nil {
			return mcpError(fmt.Sprintf("deleting prompt: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Deleted prompt %s", id)), nil
	}
}

func mcpCheckAvailable(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Service.CheckAvailable(ctx) {
			return mcpText("available"), nil
		}
		return mcpText("unavailable"), nil
	}
}

func mcpResourcePrompts(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := deps.Service.ListPrompts()
		if err != nil {
			return nil, fmt.Errorf("failed to list prompts: %w", err)
		}
		return jsonResource(req.Params.URI, list)
	}
}

func mcpResourceHistory(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		rows, err := deps.History.RecentEnhancements(10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent enhancements: %w", err)
		}

		type entry struct {
			ID         string `json:"id"`
			CreatedAt  string `json:"created_at"`
			Model      string `json:"model"`
			PromptID   string `json:"prompt_id"`
			Status     string `json:"status"`
			DurationMs int64  `json:"duration_ms"`
		}
		entries := make([]entry, len(rows))
		for i, e := range rows {
			entries[i] = entry{
				ID:         e.ID,
				CreatedAt:  e.CreatedAt.Format(time.RFC3339),
				Model:      e.Model,
				PromptID:   e.PromptID,
				Status:     e.Status,
				DurationMs: e.Duration.Milliseconds(),
			}
		}
		return jsonResource(req.Params.URI, entries)
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
