package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/tool"
)

// ServerConfig describes an MCP server to connect to. Command starts a
// stdio subprocess; otherwise URL names an SSE endpoint.
type ServerConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	URL     string   `yaml:"url"`
}

// Remote holds a connection to an MCP server and the tools it offers.
// It is safe for concurrent use.
type Remote struct {
	name   string
	client *client.Client

	mu    sync.RWMutex
	tools map[string]ai.Tool
}

// Connect starts a client for cfg, initializes the session and fetches the
// tool list.
func Connect(ctx context.Context, cfg ServerConfig) (*Remote, error) {
	var (
		c   *client.Client
		err error
	)
	switch {
	case cfg.Command != "":
		c, err = client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
	case cfg.URL != "":
		c, err = client.NewSSEMCPClient(cfg.URL)
	default:
		return nil, fmt.Errorf("mcp server %q: command or url is required", cfg.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client for %q: %w", cfg.Name, err)
	}
	return Attach(ctx, cfg.Name, c)
}

// Attach starts and initializes an existing client and fetches its tools.
// On failure the client is closed.
func Attach(ctx context.Context, name string, c *client.Client) (*Remote, error) {
	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to start MCP client %q: %w", name, err)
	}

	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "miniagent",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize MCP session %q: %w", name, err)
	}

	r := &Remote{name: name, client: c}
	if err := r.Refresh(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to list tools of %q: %w", name, err)
	}
	return r, nil
}

// Name returns the configured server name.
func (r *Remote) Name() string {
	return r.name
}

// Close closes the connection to the MCP server.
func (r *Remote) Close() error {
	return r.client.Close()
}

// Refresh fetches the current list of tools from the MCP server.
func (r *Remote) Refresh(ctx context.Context) error {
	result, err := r.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return err
	}

	tools := make(map[string]ai.Tool, len(result.Tools))
	for _, t := range result.Tools {
		tools[t.Name] = FromMCPTool(t)
	}

	r.mu.Lock()
	r.tools = tools
	r.mu.Unlock()
	return nil
}

// Tools returns the server's tools, sorted by name, as tool.Tool values
// that proxy calls to the server.
func (r *Remote) Tools() []tool.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]tool.Tool, len(names))
	for i, name := range names {
		tools[i] = &remoteTool{remote: r, def: r.tools[name]}
	}
	return tools
}

// Len returns the number of available tools.
func (r *Remote) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Register adds every remote tool to registry. It stops at the first name
// collision.
func (r *Remote) Register(registry *tool.Registry) error {
	for _, t := range r.Tools() {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("mcp server %q: %w", r.name, err)
		}
	}
	return nil
}

// Call invokes a tool on the server. Transport failures become failed
// results.
func (r *Remote) Call(ctx context.Context, name string, args map[string]any) ai.ToolResult {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := r.client.CallTool(ctx, req)
	if err != nil {
		return ai.Failed("MCP call to %s failed: %v", name, err)
	}
	return FromMCPCallToolResult(result)
}

type remoteTool struct {
	remote *Remote
	def    ai.Tool
}

func (t *remoteTool) Definition() ai.Tool {
	return t.def
}

func (t *remoteTool) Execute(ctx context.Context, args map[string]any) ai.ToolResult {
	return t.remote.Call(ctx, t.def.Name, args)
}
