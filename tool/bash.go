package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type bashArgs struct {
	Command string `json:"command" desc:"Shell command to run in the workspace directory" required:"true"`
	Timeout int    `json:"timeout" desc:"Timeout in seconds (default 120, max 600)"`
}

const maxBashTimeout = 10 * time.Minute

func (w *workspace) bashTool() Tool {
	return Func("bash", "Run a shell command with bash in the workspace directory and return its combined output and exit code.",
		func(ctx context.Context, args bashArgs) (string, error) {
			if strings.TrimSpace(args.Command) == "" {
				return "", errors.New("command must not be empty")
			}

			timeout := w.bashTimeout
			if args.Timeout > 0 {
				timeout = time.Duration(args.Timeout) * time.Second
			}
			if timeout > maxBashTimeout {
				timeout = maxBashTimeout
			}

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, "bash", "-c", args.Command)
			cmd.Dir = w.dir
			cmd.WaitDelay = 2 * time.Second
			var out bytes.Buffer
			cmd.Stdout = &out
			cmd.Stderr = &out

			err := cmd.Run()
			output := truncateOutput(out.String(), w.maxOutput)

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("command timed out after %s\n%s", timeout, output)
			}

			var exitErr *exec.ExitError
			switch {
			case errors.As(err, &exitErr):
				return "", fmt.Errorf("exit code %d\n%s", exitErr.ExitCode(), output)
			case err != nil:
				return "", err
			}
			if output == "" {
				return "(no output)", nil
			}
			return output, nil
		})
}

func truncateOutput(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("\n... (truncated, %d bytes total)", len(s))
}
