// Package tool provides the tool capability interface, the registry that
// dispatches model tool calls, and the built-in workspace tools.
//
// # Defining Tools
//
// Define tool arguments as a struct with tags and wrap a typed handler:
//
//	type WeatherArgs struct {
//	    Location string `json:"location" desc:"City name" required:"true"`
//	    Unit     string `json:"unit" desc:"Temperature unit" enum:"celsius,fahrenheit"`
//	}
//
//	registry := tool.NewRegistry().Add(
//	    tool.Func("get_weather", "Get current weather",
//	        func(ctx context.Context, args WeatherArgs) (string, error) {
//	            return fmt.Sprintf(`{"temp": 72, "location": %q}`, args.Location), nil
//	        }),
//	)
//
// Types implementing [Tool] directly can be registered as well; the mcp
// package does this for remote tools.
//
// # Dispatch
//
// [Registry.Dispatch] never returns an error. Unknown tools, undecodable
// arguments, handler errors and panics all come back as a failed
// ai.ToolResult that the agent feeds to the model.
//
// # Built-in Tools
//
// [WorkspaceTools] returns tools confined to one directory:
//
//   - read_file: read a file or a line range
//   - write_file: write or append to a file
//   - edit_file: replace exact text
//   - list_dir: list a directory, optionally recursively
//   - glob_search: find files by glob and optionally grep them
//   - bash: run a shell command with a timeout
package tool
