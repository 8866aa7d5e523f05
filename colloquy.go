// Package colloquy provides a high-level facade over the orchestration
// engine: tool registration, single-agent invocation, workflows and
// debates. Most applications interact with this package by:
//  1. Creating a Colloquy via New() with a model gateway
//  2. Registering tools the agents may call
//  3. Running workflows (RunWorkflow/StreamWorkflow) or debates
//     (RunDebate/StreamDebate), or invoking a single agent (Invoke)
//
// The facade delegates scheduling to workflow.Orchestrator and
// debate.Coordinator while keeping setup and usage ergonomics concise.
// All defaults are safe for local development and testing; production
// deployments typically supply a structured logger and tuned limits.
package colloquy

import (
	"context"

	"github.com/colloquyhq/colloquy/classify"
	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/debate"
	"github.com/colloquyhq/colloquy/gateway"
	"github.com/colloquyhq/colloquy/invoker"
	"github.com/colloquyhq/colloquy/logging"
	"github.com/colloquyhq/colloquy/tool"
	"github.com/colloquyhq/colloquy/workflow"
)

// Options configures the Colloquy instance.
type Options struct {
	// MaxToolRounds bounds gateway calls per agent invocation, including
	// tool-continuation rounds.
	MaxToolRounds int

	// MaxConcurrentAgents limits simultaneous agent invocations in
	// parallel and independent workflow modes.
	MaxConcurrentAgents int

	// RelevanceThreshold is the minimum smart-routing score an agent
	// needs to stay selected.
	RelevanceThreshold int

	// DebateRounds is the number of rebuttal rounds per debate.
	DebateRounds int

	// SmartRouting enables the intent-classification step for workflow
	// requests that ask for it. Disabled classifiers keep all agents.
	SmartRouting bool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Colloquy is the high-level facade aggregating the engine components.
type Colloquy struct {
	opts     Options
	registry *tool.Registry
	invoker  *invoker.Invoker
	orch     *workflow.Orchestrator
	debates  *debate.Coordinator
}

// New creates a Colloquy instance over a model gateway with optional
// overrides.
func New(gw gateway.Gateway, optFns ...func(o *Options)) *Colloquy {
	opts := Options{
		SmartRouting: true,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := tool.NewRegistry()
	executor := tool.NewExecutor(registry, func(o *tool.ExecutorOptions) {
		o.Logger = opts.Logger
	})
	inv := invoker.New(gw, registry, executor, func(o *invoker.Options) {
		o.MaxToolRounds = opts.MaxToolRounds
		o.Logger = opts.Logger
	})

	var classifier *classify.Classifier
	if opts.SmartRouting {
		classifier = classify.New(gw, func(o *classify.Options) {
			o.Logger = opts.Logger
		})
	}

	orch := workflow.New(inv, func(o *workflow.Options) {
		o.Classifier = classifier
		o.MaxConcurrent = opts.MaxConcurrentAgents
		o.RelevanceThreshold = opts.RelevanceThreshold
		o.Logger = opts.Logger
	})
	deb := debate.New(inv, func(o *debate.Options) {
		o.Rounds = opts.DebateRounds
		o.Logger = opts.Logger
	})

	return &Colloquy{
		opts:     opts,
		registry: registry,
		invoker:  inv,
		orch:     orch,
		debates:  deb,
	}
}

// RegisterTool adds a tool definition to the shared registry. Tools must
// be registered before the first invocation; the registry is read-only
// during execution.
func (c *Colloquy) RegisterTool(def *tool.Definition) error {
	return c.registry.Register(def)
}

// Tools returns the registered tool definitions in registration order.
func (c *Colloquy) Tools() []*tool.Definition { return c.registry.List() }

// Invoke runs a single agent against the prompt, executing any tool
// calls it emits, and returns the final reply text.
func (c *Colloquy) Invoke(ctx context.Context, agent core.AgentDescriptor, prompt string) (string, error) {
	return c.invoker.Invoke(ctx, agent, []core.Message{core.UserMessage(prompt)})
}

// RunWorkflow executes a workflow synchronously.
func (c *Colloquy) RunWorkflow(ctx context.Context, req workflow.Request) (*workflow.Result, error) {
	return c.orch.Run(ctx, req)
}

// StreamWorkflow executes a workflow asynchronously, emitting typed
// events on the returned channel. The channel closes after the terminal
// event.
func (c *Colloquy) StreamWorkflow(ctx context.Context, req workflow.Request) <-chan core.Event {
	return c.orch.Stream(ctx, req)
}

// RunDebate runs a debate between the given agents synchronously.
func (c *Colloquy) RunDebate(ctx context.Context, topic string, agents []core.AgentDescriptor) (*debate.Session, error) {
	return c.debates.Run(ctx, topic, agents)
}

// StreamDebate runs a debate asynchronously, emitting typed events on
// the returned channel. The channel closes after the terminal event.
func (c *Colloquy) StreamDebate(ctx context.Context, topic string, agents []core.AgentDescriptor) <-chan core.Event {
	return c.debates.Stream(ctx, topic, agents)
}
