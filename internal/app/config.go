// Package app loads the shared configuration of the miniagent commands and
// assembles the client, tool registry and agents they run.
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	ai "github.com/spetersoncode/miniagent"
	"github.com/spetersoncode/miniagent/agent"
	"github.com/spetersoncode/miniagent/mcp"
	"github.com/spetersoncode/miniagent/retry"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when neither a path nor MINIAGENT_CONFIG is given.
const DefaultConfigPath = "config.yaml"

// RetryConfig is the retry section of the config file. Delays are seconds.
type RetryConfig struct {
	Enabled         bool    `yaml:"enabled"`
	MaxRetries      int     `yaml:"max_retries"`
	InitialDelay    float64 `yaml:"initial_delay"`
	MaxDelay        float64 `yaml:"max_delay"`
	ExponentialBase float64 `yaml:"exponential_base"`
}

// ToolsConfig selects the built-in tools.
type ToolsConfig struct {
	EnableFileTools bool `yaml:"enable_file_tools"`
	EnableBash      bool `yaml:"enable_bash"`
	// BashTimeout is the default bash timeout in seconds.
	BashTimeout float64 `yaml:"bash_timeout"`
}

// Config holds the configuration shared by cmd/serve and cmd/miniagent.
type Config struct {
	// LLM
	Provider       string      `yaml:"provider"`
	Model          string      `yaml:"model"`
	APIKey         string      `yaml:"api_key"`
	APIBase        string      `yaml:"api_base"`
	DeepThink      bool        `yaml:"deep_think"`
	ThinkingBudget int         `yaml:"thinking_budget"`
	Retry          RetryConfig `yaml:"retry"`

	// Agent
	MaxSteps         int    `yaml:"max_steps"`
	TokenLimit       int    `yaml:"token_limit"`
	WorkspaceDir     string `yaml:"workspace_dir"`
	SystemPromptPath string `yaml:"system_prompt_path"`

	Tools      ToolsConfig        `yaml:"tools"`
	MCPServers []mcp.ServerConfig `yaml:"mcp_servers"`

	// Server
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text or json
}

// Default returns the configuration used for keys the file and the
// environment leave unset.
func Default() *Config {
	return &Config{
		Provider: string(ai.ProviderAnthropic),
		Retry: RetryConfig{
			Enabled:         true,
			MaxRetries:      3,
			InitialDelay:    1,
			MaxDelay:        60,
			ExponentialBase: 2,
		},
		MaxSteps:     agent.DefaultMaxSteps,
		TokenLimit:   agent.DefaultTokenLimit,
		WorkspaceDir: "./workspace",
		Tools: ToolsConfig{
			EnableFileTools: true,
			EnableBash:      true,
			BashTimeout:     120,
		},
		Port:      "8000",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from, in increasing precedence, the
// defaults, the YAML file and the environment. A .env file is loaded first
// if present. An empty path falls back to MINIAGENT_CONFIG and then to
// config.yaml; only an explicitly named file must exist.
func Load(path string) (*Config, error) {
	godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("MINIAGENT_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Provider = getEnvOrDefault("MINIAGENT_PROVIDER", c.Provider)
	c.Model = getEnvOrDefault("MINIAGENT_MODEL", c.Model)
	c.APIBase = getEnvOrDefault("MINIAGENT_API_BASE", c.APIBase)
	c.APIKey = getEnvOrDefault(apiKeyEnv(c.Provider), c.APIKey)
	c.DeepThink = getEnvBoolOrDefault("MINIAGENT_DEEP_THINK", c.DeepThink)
	c.MaxSteps = getEnvIntOrDefault("MINIAGENT_MAX_STEPS", c.MaxSteps)
	c.TokenLimit = getEnvIntOrDefault("MINIAGENT_TOKEN_LIMIT", c.TokenLimit)
	c.WorkspaceDir = getEnvOrDefault("MINIAGENT_WORKSPACE", c.WorkspaceDir)
	c.Port = getEnvOrDefault("MINIAGENT_PORT", c.Port)
	c.LogLevel = getEnvOrDefault("MINIAGENT_LOG_LEVEL", c.LogLevel)
}

// apiKeyEnv names the environment variable holding the provider's key.
func apiKeyEnv(provider string) string {
	switch ai.Provider(provider) {
	case ai.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ai.ProviderGoogle:
		return "GOOGLE_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch ai.Provider(c.Provider) {
	case ai.ProviderAnthropic, ai.ProviderOpenAI, ai.ProviderGoogle:
	default:
		return fmt.Errorf("unknown provider: %q (must be anthropic, openai or google)", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("api_key or %s is required for %s provider", apiKeyEnv(c.Provider), c.Provider)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.TokenLimit <= 0 {
		return fmt.Errorf("token_limit must be positive, got %d", c.TokenLimit)
	}
	if strings.TrimSpace(c.WorkspaceDir) == "" {
		return errors.New("workspace_dir is required")
	}
	if c.Retry.MaxRetries < 0 || c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		return errors.New("retry values cannot be negative")
	}
	for i, s := range c.MCPServers {
		if s.Name == "" {
			return fmt.Errorf("mcp_servers[%d]: name is required", i)
		}
		if s.Command == "" && s.URL == "" {
			return fmt.Errorf("mcp server %q: command or url is required", s.Name)
		}
	}
	return nil
}

// RetryPolicy converts the retry section into a retry.Config.
func (c *Config) RetryPolicy() retry.Config {
	if !c.Retry.Enabled {
		return retry.Disabled()
	}
	return retry.New(c.Retry.MaxRetries, seconds(c.Retry.InitialDelay), seconds(c.Retry.MaxDelay), c.Retry.ExponentialBase)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
