package tool

import (
	"context"
	"encoding/json"
	"fmt"

	ai "github.com/spetersoncode/miniagent"
)

// Tool is a capability the agent can invoke.
//
// Execute reports every outcome through the returned ToolResult. The
// registry still guards against panics, so an implementation need not.
type Tool interface {
	// Definition returns the name, description and JSON schema sent to the model.
	Definition() ai.Tool

	// Execute runs the tool with decoded JSON arguments.
	Execute(ctx context.Context, args map[string]any) ai.ToolResult
}

// Handler executes a tool with raw decoded arguments.
// A returned error becomes a failed ToolResult carrying err.Error().
type Handler func(ctx context.Context, args map[string]any) (string, error)

// TypedHandler executes a tool with arguments decoded into T.
type TypedHandler[T any] func(ctx context.Context, args T) (string, error)

type funcTool struct {
	def     ai.Tool
	handler Handler
}

func (f *funcTool) Definition() ai.Tool {
	return f.def
}

func (f *funcTool) Execute(ctx context.Context, args map[string]any) ai.ToolResult {
	content, err := f.handler(ctx, args)
	if err != nil {
		return ai.ToolResult{Error: err.Error()}
	}
	return ai.OK(content)
}

// New creates a Tool from a definition and an untyped handler.
func New(def ai.Tool, h Handler) Tool {
	return &funcTool{def: def, handler: h}
}

// WithHandler creates a Tool from a name, description, schema and handler.
func WithHandler(name, description string, schema json.RawMessage, h Handler) Tool {
	return New(ai.Tool{Name: name, Description: description, Parameters: schema}, h)
}

// Func creates a Tool whose schema is generated from T and whose arguments
// are decoded into T before fn runs. Panics if schema generation fails.
//
// Example:
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("weather", "Get weather", func(ctx context.Context, args WeatherArgs) (string, error) {
//	        return getWeather(args.Location), nil
//	    }),
//	)
func Func[T any](name, description string, fn TypedHandler[T]) Tool {
	return WithHandler(name, description, MustSchemaFor[T](), typed(name, fn))
}

// typed adapts a TypedHandler to a Handler by round-tripping the argument
// map through JSON.
func typed[T any](name string, fn TypedHandler[T]) Handler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		var decoded T
		if err := decodeArgs(args, &decoded); err != nil {
			return "", &ErrInvalidArguments{Name: name, Err: err}
		}
		return fn(ctx, decoded)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
