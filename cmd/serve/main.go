// Command serve exposes miniagent over HTTP.
//
// Endpoints:
//
//	POST   /api/chat                 run the session's agent, SSE by default
//	GET    /api/sessions             list sessions
//	POST   /api/sessions             create a session
//	GET    /api/sessions/{id}        session with messages
//	DELETE /api/sessions/{id}        delete a session and evict its agent
//	PUT    /api/sessions/{id}/title  rename a session
//	POST   /api/sessions/{id}/cancel cancel the running turn
//	POST   /api/agui                 run an agent via the AG-UI protocol
//	GET    /health                   health check
//
// Configuration is read from config.yaml (or MINIAGENT_CONFIG), a .env file
// and the environment:
//
//	MINIAGENT_PROVIDER  - anthropic, openai or google
//	MINIAGENT_MODEL     - model override
//	MINIAGENT_API_BASE  - endpoint override, e.g. an OpenAI-compatible server
//	MINIAGENT_PORT      - server port (default: 8000)
//	MINIAGENT_WORKSPACE - workspace directory (default: ./workspace)
//	ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY
//
// Usage:
//
//	MINIAGENT_PROVIDER=anthropic go run ./cmd/serve
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spetersoncode/miniagent/agent"
	"github.com/spetersoncode/miniagent/internal/app"
	"github.com/spetersoncode/miniagent/store"
)

func main() {
	cfg, err := app.Load("")
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := app.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := NewServer(store.NewSessionStore(store.NewMemoryAdapter()), func() *agent.Agent { return a.NewAgent() }, logger)
	srv.thinkingBudget = cfg.ThinkingBudget

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("server starting",
		"port", cfg.Port,
		"provider", cfg.Provider,
		"model", cfg.Model,
		"workspace", a.Workspace,
		"tools", a.Registry.Names(),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
