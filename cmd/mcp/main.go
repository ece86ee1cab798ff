// Command mcp serves the built-in workspace tools over MCP stdio, so any MCP
// client can read, edit and search files in the workspace and run commands
// there.
//
// Usage:
//
//	go run ./cmd/mcp --workspace /path/to/project
//
// Client configuration example:
//
//	{
//	    "mcpServers": {
//	        "miniagent-tools": {
//	            "command": "go",
//	            "args": ["run", "./cmd/mcp", "--workspace", "/path/to/project"],
//	            "cwd": "/path/to/miniagent"
//	        }
//	    }
//	}
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spetersoncode/miniagent/mcp"
	"github.com/spetersoncode/miniagent/tool"
	"github.com/spf13/pflag"
)

func main() {
	var (
		workspace   string
		noBash      bool
		bashTimeout time.Duration
	)
	flagSet := pflag.NewFlagSet("mcp", pflag.ContinueOnError)
	flagSet.StringVarP(&workspace, "workspace", "w", ".", "directory the tools are confined to")
	flagSet.BoolVar(&noBash, "no-bash", false, "do not expose the bash tool")
	flagSet.DurationVar(&bashTimeout, "bash-timeout", 2*time.Minute, "default bash command timeout")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	// stdout carries the protocol; logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	registry, err := newRegistry(workspace, noBash, bashTimeout)
	if err != nil {
		logger.Error("failed to set up tools", "error", err)
		os.Exit(1)
	}
	logger.Info("serving tools over stdio", "workspace", workspace, "tools", registry.Names())

	if err := mcp.ServeStdio(registry,
		mcp.WithName("miniagent-tools"),
		mcp.WithVersion("1.0.0"),
	); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newRegistry(workspace string, noBash bool, bashTimeout time.Duration) (*tool.Registry, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", abs)
	}

	registry := tool.NewRegistry()
	for _, t := range tool.WorkspaceTools(abs, tool.WithBashTimeout(bashTimeout)) {
		if noBash && t.Definition().Name == "bash" {
			continue
		}
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
