package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	ai "github.com/spetersoncode/miniagent"
)

// Registry maps tool names to implementations.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
// Returns an error if a tool with the same name is already registered.
func (r *Registry) Register(t Tool) error {
	name := t.Definition().Name

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return &ErrToolAlreadyRegistered{Name: name}
	}
	r.tools[name] = t
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Add registers one or more tools and returns the registry for chaining.
// Panics if any tool is already registered.
func (r *Registry) Add(tools ...Tool) *Registry {
	for _, t := range tools {
		r.MustRegister(t)
	}
	return r
}

// RegisterFunc registers a tool with a typed handler whose schema is
// generated from T.
//
//	type SearchArgs struct {
//	    Query string `json:"query" desc:"Search query" required:"true"`
//	}
//
//	tool.RegisterFunc(registry, "search", "Search the web",
//	    func(ctx context.Context, args SearchArgs) (string, error) {
//	        return doSearch(args.Query), nil
//	    },
//	)
func RegisterFunc[T any](r *Registry, name, description string, fn TypedHandler[T]) error {
	schema, err := SchemaFor[T]()
	if err != nil {
		return err
	}
	return r.Register(WithHandler(name, description, schema, typed(name, fn)))
}

// Unregister removes a tool from the registry.
// It is a no-op if the tool is not registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// Lookup is like Get but returns *ErrToolNotFound for unknown names.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, &ErrToolNotFound{Name: name}
	}
	return t, nil
}

// Definitions returns the definitions of all registered tools sorted by
// name, as passed to the model.
func (r *Registry) Definitions() []ai.Tool {
	r.mu.RLock()
	defs := make([]ai.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	r.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Dispatch resolves call.Name and executes the tool.
//
// It always returns a result and never panics: an unknown name, undecodable
// arguments, a handler error and a panic all become a failed ToolResult.
func (r *Registry) Dispatch(ctx context.Context, call ai.ToolCall) (result ai.ToolResult) {
	t, err := r.Lookup(call.Name)
	if err != nil {
		return ai.ToolResult{Error: err.Error()}
	}

	defer func() {
		if p := recover(); p != nil {
			result = ai.ToolResult{Error: panicMessage(p, debug.Stack())}
		}
	}()

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return t.Execute(ctx, args)
}

// panicMessage formats a recovered panic value. fmt.Sprint uses Error()
// for error values.
func panicMessage(p any, stack []byte) string {
	return fmt.Sprintf("Tool execution failed: %T: %s\n\nStack:\n%s", p, fmt.Sprint(p), stack)
}
