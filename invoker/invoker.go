// Package invoker wraps a single agent invocation against the LLM gateway,
// running the text-embedded tool protocol in a bounded loop: call the model,
// execute any tool markers in the reply, feed the substituted text back, and
// stop as soon as a reply contains no calls or the round limit is reached.
package invoker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/gateway"
	"github.com/colloquyhq/colloquy/logging"
	"github.com/colloquyhq/colloquy/tool"
)

const (
	// DefaultMaxToolRounds bounds the tool-call loop per invocation.
	DefaultMaxToolRounds = 5
	// DefaultCallTimeout bounds a single gateway call.
	DefaultCallTimeout = 120 * time.Second
)

// truncationNotice annotates a best-effort reply returned when the round
// limit was hit with unresolved tool calls still present.
const truncationNotice = "\n\n[Note: tool call limit reached; some tool results may be incomplete.]"

// continuationPrompt asks the agent to fold fresh tool results into a final
// answer. It is appended as a user turn after each tool round.
const continuationPrompt = "The tool results above have been inserted into your previous reply. " +
	"Use them to produce your final answer. Only request another tool call if it is strictly necessary."

// Options configure an Invoker.
type Options struct {
	// MaxToolRounds bounds gateway calls per Invoke. Zero selects
	// DefaultMaxToolRounds.
	MaxToolRounds int
	// CallTimeout bounds each gateway call. Zero selects DefaultCallTimeout.
	CallTimeout time.Duration
	// Logger receives per-round diagnostics. Nil disables logging.
	Logger logging.Logger
}

// Invoker executes one agent against the gateway with tool support.
type Invoker struct {
	gateway   gateway.Gateway
	executor  *tool.Executor
	registry  *tool.Registry
	maxRounds int
	timeout   time.Duration
	logger    logging.Logger
}

// New creates an Invoker. The registry is consulted only to advertise
// available tools in the system prompt; execution goes through executor.
func New(gw gateway.Gateway, registry *tool.Registry, executor *tool.Executor, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		MaxToolRounds: DefaultMaxToolRounds,
		CallTimeout:   DefaultCallTimeout,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Invoker{
		gateway:   gw,
		executor:  executor,
		registry:  registry,
		maxRounds: opts.MaxToolRounds,
		timeout:   opts.CallTimeout,
		logger:    logging.OrDefault(opts.Logger),
	}
}

// Invoke runs the agent over messages and returns its final reply. Tool-level
// failures never surface here: they are substituted inline. A gateway failure
// is returned as *core.AgentInvocationError carrying the agent id; hitting
// the round limit returns the best text so far with a truncation notice and a
// core.ErrToolLoopLimit-wrapped error the caller may log and otherwise
// ignore.
func (iv *Invoker) Invoke(ctx context.Context, agent core.AgentDescriptor, messages []core.Message) (string, error) {
	history := make([]core.Message, 0, len(messages)+1)
	history = append(history, core.SystemMessage(iv.systemPrompt(agent)))
	history = append(history, messages...)

	var lastText string
	for round := 1; ; round++ {
		reply, err := iv.call(ctx, agent, history)
		if err != nil {
			return "", &core.AgentInvocationError{AgentID: agent.ID, Err: err}
		}

		rewritten, records := iv.executor.ExecuteAll(ctx, reply)
		if len(records) == 0 {
			return reply, nil
		}
		lastText = rewritten

		iv.logger.Debug("invoker.tool_round",
			"agent", agent.ID, "round", round, "calls", len(records))

		if round >= iv.maxRounds {
			iv.logger.Warn("invoker.tool_round.limit", "agent", agent.ID, "rounds", round)
			return lastText + truncationNotice,
				fmt.Errorf("agent %s: %w", agent.ID, core.ErrToolLoopLimit)
		}

		history = append(history,
			core.AssistantMessage(rewritten),
			core.UserMessage(continuationPrompt),
		)
	}
}

// call performs one bounded gateway call.
func (iv *Invoker) call(ctx context.Context, agent core.AgentDescriptor, history []core.Message) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, iv.timeout)
	defer cancel()

	start := time.Now()
	reply, err := iv.gateway.Call(cctx, agent.ModelID, history, agent.Temperature)
	iv.logger.Info("invoker.gateway.call",
		"agent", agent.ID, "model", agent.ModelID,
		"duration_ms", time.Since(start).Milliseconds(), "error", err != nil)
	return reply, err
}

// systemPrompt combines the agent's configured prompt with the tool protocol
// instructions for whatever tools are registered.
func (iv *Invoker) systemPrompt(agent core.AgentDescriptor) string {
	prompt := agent.SystemPrompt
	if prompt == "" {
		prompt = fmt.Sprintf("You are %s, a helpful assistant.", agent.Name)
	}
	if iv.registry == nil || iv.registry.Len() == 0 {
		return prompt
	}
	return prompt + "\n\n" + ToolInstructions(iv.registry.List())
}

// ToolInstructions renders the tool protocol section of a system prompt for
// the given definitions, in registration order. Parameters are listed
// alphabetically so the prompt is identical across runs.
func ToolInstructions(defs []*tool.Definition) string {
	var b strings.Builder
	b.WriteString("You may invoke the following tools by embedding a marker of the exact form\n")
	b.WriteString("[TOOL_CALL: <tool_id>({<json arguments>})]\n")
	b.WriteString("anywhere in your reply. Each marker is replaced by [TOOL_RESULT: ...] or [TOOL_ERROR: ...].\n\nAvailable tools:\n")
	for _, def := range defs {
		fmt.Fprintf(&b, "- %s: %s", def.ID, def.Description)
		if len(def.Parameters) > 0 {
			b.WriteString(" Arguments:")
			names := make([]string, 0, len(def.Parameters))
			for name := range def.Parameters {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				spec := def.Parameters[name]
				fmt.Fprintf(&b, " %s (%s", name, spec.Type)
				if spec.Required {
					b.WriteString(", required")
				}
				b.WriteString(")")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
