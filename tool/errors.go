package tool

import "fmt"

// ErrToolNotFound is returned when a tool call references an unregistered tool.
// Its message is the text fed back to the model.
type ErrToolNotFound struct {
	Name string
}

// Error returns a formatted error message including the tool name.
func (e *ErrToolNotFound) Error() string {
	return fmt.Sprintf("Unknown tool: %s", e.Name)
}

// ErrInvalidArguments is returned when a tool's arguments cannot be decoded
// into its argument type.
type ErrInvalidArguments struct {
	Name string
	Err  error
}

// Error returns a formatted error message including the tool name and cause.
func (e *ErrInvalidArguments) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ErrInvalidArguments) Unwrap() error {
	return e.Err
}

// ErrToolAlreadyRegistered is returned when registering a tool with a duplicate name.
type ErrToolAlreadyRegistered struct {
	Name string
}

// Error returns a formatted error message including the duplicate tool name.
func (e *ErrToolAlreadyRegistered) Error() string {
	return fmt.Sprintf("tool: already registered: %s", e.Name)
}
