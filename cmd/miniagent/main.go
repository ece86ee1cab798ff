// Command miniagent is an interactive terminal chat with the agent.
//
// Each line typed is one turn. Tool calls and results are printed as they
// happen. Ctrl-C during a turn cancels it and rolls the conversation back;
// Ctrl-C at the prompt exits.
//
// Usage:
//
//	miniagent [--config config.yaml] [--workspace dir] [--deep-think]
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spetersoncode/miniagent/agent"
	"github.com/spetersoncode/miniagent/internal/app"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		workspace   string
		deepThink   bool
		thinkBudget int
		logLevel    string
	)
	flagSet := pflag.NewFlagSet("miniagent", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to the YAML config file (default: $MINIAGENT_CONFIG or config.yaml)")
	flagSet.StringVarP(&workspace, "workspace", "w", "", "workspace directory the tools are confined to")
	flagSet.BoolVar(&deepThink, "deep-think", false, "ask the model for reasoning output")
	flagSet.IntVar(&thinkBudget, "thinking-budget", 0, "reasoning token budget for --deep-think (default: provider default)")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := app.Load(configPath)
	if err != nil {
		return err
	}
	if workspace != "" {
		cfg.WorkspaceDir = workspace
	}
	if deepThink {
		cfg.DeepThink = true
		cfg.ThinkingBudget = thinkBudget
	}

	logger := app.NewLogger(os.Stderr, logLevel, "text")
	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("miniagent (%s", cfg.Provider)
	if cfg.Model != "" {
		fmt.Printf(", %s", cfg.Model)
	}
	fmt.Printf(") workspace: %s\n", a.Workspace)
	fmt.Println("Type /clear to start over, /exit to quit. Ctrl-C cancels a running turn.")

	return repl(os.Stdin, newPrinter(os.Stdout), a.NewAgent)
}

// repl reads turns from in until EOF, /exit or an interrupt at the prompt.
func repl(in io.Reader, p *printer, newAgent func(...agent.Option) *agent.Agent) error {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	a := newAgent()
	for {
		p.prompt()

		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(p.w)
				return nil
			}
			line = strings.TrimSpace(l)
		case <-interrupts:
			fmt.Fprintln(p.w)
			return nil
		}

		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			a = newAgent()
			fmt.Fprintln(p.w, "Conversation cleared.")
			continue
		}

		turn(a, line, p, interrupts)
	}
}

// turn runs one message, cancelling through the token on interrupt.
func turn(a *agent.Agent, line string, p *printer, interrupts <-chan os.Signal) {
	token := agent.NewCancelToken()
	done := make(chan struct{})
	go func() {
		select {
		case <-interrupts:
			token.Cancel()
		case <-done:
		}
	}()
	defer close(done)

	for ev := range a.RunStream(context.Background(), line, token) {
		p.print(ev)
	}
}
