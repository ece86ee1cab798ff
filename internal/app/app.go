package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/agent"
	"github.com/spetersoncode/miniagent/client"
	"github.com/spetersoncode/miniagent/mcp"
	"github.com/spetersoncode/miniagent/retry"
	"github.com/spetersoncode/miniagent/tool"
)

// DefaultSystemPrompt is used when no prompt file is configured or found.
const DefaultSystemPrompt = "You are a helpful AI assistant. Use the available tools to inspect and change files in the workspace when the task requires it."

// App holds the long-lived pieces every agent of a process shares.
type App struct {
	Config       *Config
	Client       *client.Client
	Registry     *tool.Registry
	SystemPrompt string
	Workspace    string
	Logger       *slog.Logger

	remotes []*mcp.Remote
	events  chan client.Event
}

// New assembles the client, the workspace, the tool registry and the system
// prompt described by cfg. Unreachable MCP servers are logged and skipped.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	workspace, err := filepath.Abs(cfg.WorkspaceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	prompt, err := LoadSystemPrompt(cfg.SystemPromptPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:       cfg,
		SystemPrompt: prompt,
		Workspace:    workspace,
		Logger:       logger,
		events:       make(chan client.Event, 100),
	}
	go a.logClientEvents()

	retryPolicy := cfg.RetryPolicy()
	a.Client, err = client.New(ctx, client.Config{
		Provider:    ai.Provider(cfg.Provider),
		APIKey:      cfg.APIKey,
		APIBase:     cfg.APIBase,
		Model:       cfg.Model,
		RetryConfig: &retryPolicy,
		Events:      a.events,
	})
	if err != nil {
		close(a.events)
		return nil, err
	}

	a.Registry = tool.NewRegistry().Add(BuiltinTools(cfg, workspace)...)
	for _, sc := range cfg.MCPServers {
		remote, err := mcp.Connect(ctx, sc)
		if err != nil {
			logger.Warn("mcp server unavailable", "server", sc.Name, "error", err)
			continue
		}
		if err := remote.Register(a.Registry); err != nil {
			logger.Warn("failed to register mcp tools", "server", sc.Name, "error", err)
			remote.Close()
			continue
		}
		a.remotes = append(a.remotes, remote)
		logger.Info("registered mcp tools", "server", sc.Name, "count", remote.Len())
	}

	return a, nil
}

// BuiltinTools returns the workspace tools enabled by cfg.
func BuiltinTools(cfg *Config, workspace string) []tool.Tool {
	all := tool.WorkspaceTools(workspace, tool.WithBashTimeout(seconds(cfg.Tools.BashTimeout)))
	var tools []tool.Tool
	for _, t := range all {
		isBash := t.Definition().Name == "bash"
		if (isBash && cfg.Tools.EnableBash) || (!isBash && cfg.Tools.EnableFileTools) {
			tools = append(tools, t)
		}
	}
	return tools
}

// AgentOptions returns the agent options derived from the configuration.
func (a *App) AgentOptions() []agent.Option {
	opts := []agent.Option{
		agent.WithMaxSteps(a.Config.MaxSteps),
		agent.WithTokenLimit(a.Config.TokenLimit),
		agent.WithLogger(a.Logger),
		agent.WithWorkspace(a.Workspace),
	}
	if a.Config.DeepThink {
		opts = append(opts, agent.WithDeepThink(a.Config.ThinkingBudget))
	}
	return opts
}

// NewAgent creates an agent for one conversation. Extra options are applied
// after the configured ones.
func (a *App) NewAgent(opts ...agent.Option) *agent.Agent {
	return agent.New(a.Client, a.Registry, a.SystemPrompt, append(a.AgentOptions(), opts...)...)
}

// Close disconnects the MCP servers.
func (a *App) Close() error {
	var errs []error
	for _, r := range a.remotes {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mcp server %s: %w", r.Name(), err))
		}
	}
	a.remotes = nil
	return errors.Join(errs...)
}

func (a *App) logClientEvents() {
	for ev := range a.events {
		switch ev.Type {
		case client.EventRetry:
			if re := ev.RetryEvent; re != nil && re.Type == retry.EventRetrying {
				a.Logger.Warn("retrying model call",
					"operation", ev.Operation,
					"attempt", re.Attempt,
					"max_attempts", re.MaxAttempts,
					"delay", re.Delay,
					"error", re.Error,
				)
			}
		case client.EventRequestError:
			a.Logger.Warn("model call failed", "operation", ev.Operation, "error", ev.Error)
		case client.EventRequestComplete:
			a.Logger.Debug("model call completed", "operation", ev.Operation, "duration_ms", ev.Duration.Milliseconds())
		}
	}
}

// LoadSystemPrompt reads the prompt file at path. An empty path or a
// missing file yields DefaultSystemPrompt.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return DefaultSystemPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultSystemPrompt, nil
		}
		return "", fmt.Errorf("failed to read system prompt: %w", err)
	}
	return string(data), nil
}

// NewLogger builds the process logger on w. Unknown levels fall back to info.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
