// Package config loads colloquyd configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colloquyhq/colloquy/core"
)

type Config struct {
	Server   ServerConfig           `yaml:"server"`
	Gateway  GatewayConfig          `yaml:"gateway"`
	Store    StoreConfig            `yaml:"store"`
	Tools    ToolsConfig            `yaml:"tools"`
	Workflow WorkflowConfig         `yaml:"workflow"`
	Debate   DebateConfig           `yaml:"debate"`
	Logging  LoggingConfig          `yaml:"logging"`
	Agents   []core.AgentDescriptor `yaml:"agents"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	Port int    `yaml:"port"`
}

// GatewayConfig selects and configures the model provider. Provider is
// "openai" or "anthropic".
type GatewayConfig struct {
	Provider        string `yaml:"provider"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	DefaultModel    string `yaml:"default_model"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type ToolsConfig struct {
	SandboxDir string `yaml:"sandbox_dir"`
	// HandlerTimeout bounds a single tool handler invocation.
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
}

type WorkflowConfig struct {
	MaxConcurrent      int `yaml:"max_concurrent"`
	RelevanceThreshold int `yaml:"relevance_threshold"`
}

type DebateConfig struct {
	Rounds int `yaml:"rounds"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Pretty enables human-readable console output instead of JSON.
	Pretty bool `yaml:"pretty"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr: "0.0.0.0",
			Port: 8080,
		},
		Gateway: GatewayConfig{
			Provider: "openai",
		},
		Store: StoreConfig{
			Path: "data/colloquy.db",
		},
		Tools: ToolsConfig{
			SandboxDir:     "data/workspace",
			HandlerTimeout: 15 * time.Second,
		},
		Workflow: WorkflowConfig{
			MaxConcurrent:      4,
			RelevanceThreshold: 30,
		},
		Debate: DebateConfig{
			Rounds: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. Environment variables referenced in the YAML are
// expanded, and a set of COLLOQUY_* variables override individual fields.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults + env
	} else {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Gateway.OpenAIAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Gateway.AnthropicAPIKey = v
	}
	if v := os.Getenv("COLLOQUY_PROVIDER"); v != "" {
		cfg.Gateway.Provider = v
	}
	if v := os.Getenv("COLLOQUY_DEFAULT_MODEL"); v != "" {
		cfg.Gateway.DefaultModel = v
	}
	if v := os.Getenv("COLLOQUY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("COLLOQUY_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("COLLOQUY_SANDBOX_DIR"); v != "" {
		cfg.Tools.SandboxDir = v
	}
	if v := os.Getenv("COLLOQUY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks cross-field consistency: the provider must be known and
// agent ids unique and non-empty. API keys are not required here; they may
// arrive through the environment at call time.
func (c *Config) Validate() error {
	switch c.Gateway.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown gateway provider %q", c.Gateway.Provider)
	}

	seen := make(map[string]struct{}, len(c.Agents))
	for i, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent %d: missing id", i)
		}
		if _, ok := seen[a.ID]; ok {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}
