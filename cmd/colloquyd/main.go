// Command colloquyd serves the multi-agent orchestration API.
//
// Usage:
//
//	colloquyd serve --config colloquy.yaml
//	colloquyd validate --config colloquy.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/colloquyhq/colloquy/classify"
	"github.com/colloquyhq/colloquy/config"
	"github.com/colloquyhq/colloquy/debate"
	"github.com/colloquyhq/colloquy/gateway"
	anthropicgw "github.com/colloquyhq/colloquy/gateway/anthropic"
	openaigw "github.com/colloquyhq/colloquy/gateway/openai"
	"github.com/colloquyhq/colloquy/invoker"
	"github.com/colloquyhq/colloquy/logging"
	"github.com/colloquyhq/colloquy/server"
	"github.com/colloquyhq/colloquy/store"
	"github.com/colloquyhq/colloquy/tool"
	"github.com/colloquyhq/colloquy/workflow"
)

type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" default:"1" help:"Start the orchestration server."`
	Validate ValidateCmd `cmd:"" help:"Validate the configuration file."`

	Config   string `short:"c" help:"Path to config file." default:"colloquy.yaml" type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:""`
	Pretty   bool   `help:"Human-readable console logs instead of JSON."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run(_ *CLI) error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("colloquyd version %s\n", version)
	return nil
}

type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	fmt.Printf("config OK: %d agents, provider %s\n", len(cfg.Agents), cfg.Gateway.Provider)
	return nil
}

type ServeCmd struct{}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.Pretty {
		cfg.Logging.Pretty = true
	}

	logger := buildLogger(cfg.Logging)

	gw, err := buildGateway(cfg.Gateway)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Tools.SandboxDir, 0o755); err != nil {
		return fmt.Errorf("create sandbox dir: %w", err)
	}
	sandbox := tool.NewSandbox(cfg.Tools.SandboxDir)
	registry := tool.NewRegistry()
	for _, def := range tool.FileTools(sandbox) {
		registry.MustRegister(def)
	}
	registry.MustRegister(tool.TimeTool())

	executor := tool.NewExecutor(registry, func(o *tool.ExecutorOptions) {
		o.HandlerTimeout = cfg.Tools.HandlerTimeout
		o.Logger = logger
	})

	inv := invoker.New(gw, registry, executor, func(o *invoker.Options) {
		o.Logger = logger
	})
	classifier := classify.New(gw, func(o *classify.Options) {
		o.Logger = logger
	})
	orch := workflow.New(inv, func(o *workflow.Options) {
		o.Classifier = classifier
		o.MaxConcurrent = cfg.Workflow.MaxConcurrent
		o.RelevanceThreshold = cfg.Workflow.RelevanceThreshold
		o.Logger = logger
	})
	deb := debate.New(inv, func(o *debate.Options) {
		o.Rounds = cfg.Debate.Rounds
		o.Logger = logger
	})

	runs, err := buildStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer runs.Close()

	srv := server.New(cfg.Agents, inv, orch, deb, func(o *server.Options) {
		o.Addr = fmt.Sprintf("%s:%d", cfg.Server.Addr, cfg.Server.Port)
		o.Store = runs
		o.Logger = logger
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("daemon.shutdown_signal")
		cancel()
	}()

	logger.Info("daemon.starting",
		"agents", len(cfg.Agents), "provider", cfg.Gateway.Provider)
	return srv.Start(ctx)
}

func buildLogger(cfg config.LoggingConfig) logging.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if cfg.Pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		out = zerolog.New(os.Stderr)
	}
	return logging.NewZerologAdapter(out.Level(level).With().Timestamp().Logger())
}

func buildGateway(cfg config.GatewayConfig) (gateway.Gateway, error) {
	switch cfg.Provider {
	case "openai":
		return openaigw.New(func(o *openaigw.Options) {
			o.APIKey = cfg.OpenAIAPIKey
			if cfg.DefaultModel != "" {
				o.DefaultModel = cfg.DefaultModel
			}
		}), nil
	case "anthropic":
		return anthropicgw.New(func(o *anthropicgw.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			if cfg.DefaultModel != "" {
				o.DefaultModel = anthropic.Model(cfg.DefaultModel)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
}

func buildStore(cfg config.StoreConfig, logger logging.Logger) (store.RunStore, error) {
	if cfg.Path == "" {
		logger.Info("store.memory")
		return store.NewMemoryStore(), nil
	}
	s, err := store.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("store.sqlite", "path", cfg.Path)
	return s, nil
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("colloquyd"),
		kong.Description("colloquy - multi-agent orchestration server"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
