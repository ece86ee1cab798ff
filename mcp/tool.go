// Package mcp bridges the tool registry and the Model Context Protocol.
//
// It works in both directions:
//
//   - Server: expose a [tool.Registry] as an MCP server so that MCP clients
//     can discover and call its tools.
//   - Client: connect to MCP servers and register their tools with a
//     registry through [Remote], so the agent calls them like built-ins.
//
// # Exposing Tools as an MCP Server
//
//	registry := tool.NewRegistry().Add(tool.WorkspaceTools(dir)...)
//	if err := mcp.ServeStdio(registry); err != nil {
//	    log.Fatal(err)
//	}
//
// # Consuming MCP Servers
//
//	remote, err := mcp.Connect(ctx, mcp.ServerConfig{Name: "fs", Command: "./fs-server"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer remote.Close()
//
//	if err := remote.Register(registry); err != nil {
//	    log.Fatal(err)
//	}
package mcp

import (
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	ai "github.com/spetersoncode/miniagent"
)

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// ToMCPTool converts a tool definition to an MCP Tool. The Parameters JSON
// schema becomes the RawInputSchema.
func ToMCPTool(t ai.Tool) mcp.Tool {
	schema := t.Parameters
	if len(schema) == 0 {
		schema = emptyObjectSchema
	}
	return mcp.NewToolWithRawSchema(t.Name, t.Description, schema)
}

// FromMCPTool converts an MCP Tool to a tool definition.
// It extracts the JSON schema from either RawInputSchema or InputSchema.
func FromMCPTool(t mcp.Tool) ai.Tool {
	var schema json.RawMessage

	if len(t.RawInputSchema) > 0 {
		schema = t.RawInputSchema
	} else if data, err := json.Marshal(t.InputSchema); err == nil {
		schema = data
	}

	return ai.Tool{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  schema,
	}
}

// FromMCPCallToolResult converts an MCP CallToolResult to a ToolResult.
// Text content is concatenated; other content is included as JSON.
func FromMCPCallToolResult(result *mcp.CallToolResult) ai.ToolResult {
	if result == nil {
		return ai.Failed("MCP server returned no result")
	}

	var textParts []string
	for _, c := range result.Content {
		switch content := c.(type) {
		case mcp.TextContent:
			textParts = append(textParts, content.Text)
		case *mcp.TextContent:
			textParts = append(textParts, content.Text)
		default:
			if data, err := json.Marshal(content); err == nil {
				textParts = append(textParts, string(data))
			}
		}
	}

	if result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			textParts = append(textParts, string(data))
		}
	}

	text := strings.Join(textParts, "\n")
	if result.IsError {
		return ai.ToolResult{Error: text}
	}
	return ai.OK(text)
}

// ToMCPCallToolResult converts a ToolResult to an MCP CallToolResult.
func ToMCPCallToolResult(result ai.ToolResult) *mcp.CallToolResult {
	if !result.Success {
		return mcp.NewToolResultError(result.Error)
	}
	return mcp.NewToolResultText(result.Content)
}
