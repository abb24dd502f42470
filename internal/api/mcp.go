package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/omnidocs/docschat/internal/registry"
)

// NewMCPServer exposes the documentation Q&A engine over MCP so agent hosts
// can query the same pipeline the HTTP API uses.
func NewMCPServer(engine Engine, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"docschat",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("docschat — question answering over the product documentation topics."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_topics",
			mcp.WithDescription("List the documentation topics available for querying."),
		),
		mcpListTopics(engine),
	)

	s.AddTool(
		mcp.NewTool("ask_docs",
			mcp.WithDescription("Answer a question from the documentation. Returns the answer plus the matched topic, confidence, and related images."),
			mcp.WithString("query", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("topic", mcp.Description("Optional topic to answer from, skipping topic selection")),
		),
		mcpAskDocs(engine),
	)

	return s
}

func mcpListTopics(engine Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(engine.ListTopics())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal topics: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAskDocs(engine Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		topic := req.GetString("topic", "")

		resp, err := engine.HandleQuery(ctx, query, topic)
		if err != nil {
			var nf *registry.NotFoundError
			if errors.As(err, &nf) {
				return mcpError(nf.Error()), nil
			}
			return mcpError(fmt.Sprintf("query failed: %v", err)), nil
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcpText(string(b)), nil
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
