// Package workflow implements the multi-agent workflow orchestrator. A run
// moves through classification (optional), execution in one of three modes
// (independent, sequential pipeline, parallel fan-out) and aggregation,
// emitting typed progress events along the way. Parallel and independent
// modes provide a barrier: the run never advances past a round until every
// dispatched agent has settled.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/colloquyhq/colloquy/classify"
	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/invoker"
	"github.com/colloquyhq/colloquy/logging"
)

// DefaultRelevanceThreshold is the minimum smart-routing score for an agent
// to be selected.
const DefaultRelevanceThreshold = 30

// Request describes one orchestration run.
type Request struct {
	// Agents are the candidate descriptors, in caller-supplied order.
	// Sequential mode executes them exactly in this order.
	Agents []core.AgentDescriptor
	// Prompt is the user request shared by all agents.
	Prompt string
	// Mode selects the scheduling shape. Empty lets smart routing decide,
	// falling back to parallel.
	Mode core.Mode
	// SmartRouting enables the intent-classification step that filters and
	// weighs candidates.
	SmartRouting bool
}

// Result is the aggregated outcome of a run. Outputs and Errors are keyed by
// agent id; partial failures in independent/parallel mode live in Errors
// while the run itself still succeeds.
type Result struct {
	RunID       string               `json:"run_id"`
	Mode        core.Mode            `json:"mode"`
	FinalResult string               `json:"final_result"`
	Outputs     map[string]string    `json:"outputs,omitempty"`
	Errors      map[string]string    `json:"errors,omitempty"`
	Steps       []core.WorkflowStep  `json:"intermediate_steps,omitempty"`
	Analysis    *core.IntentAnalysis `json:"intent_analysis,omitempty"`
}

// Options configure an Orchestrator.
type Options struct {
	// Classifier enables smart routing when a request asks for it. Nil
	// disables classification; such requests run with all candidates.
	Classifier *classify.Classifier
	// MaxConcurrent bounds simultaneous agent invocations in fan-out modes.
	// Zero means one goroutine per agent.
	MaxConcurrent int
	// RelevanceThreshold is the minimum score for smart-routing selection.
	// Zero selects DefaultRelevanceThreshold.
	RelevanceThreshold int
	// SnippetLen bounds audit log snippets. Zero selects the default.
	SnippetLen int
	// Logger receives run diagnostics. Nil disables logging.
	Logger logging.Logger
}

// Orchestrator sequences agent invocations for a set of agents according to
// the chosen mode. One Orchestrator serves many concurrent runs; per-run
// state lives in the run itself.
type Orchestrator struct {
	invoker    *invoker.Invoker
	classifier *classify.Classifier
	maxPar     int
	threshold  int
	snippetLen int
	logger     logging.Logger
}

// New creates an Orchestrator on top of an agent invoker.
func New(inv *invoker.Invoker, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{RelevanceThreshold: DefaultRelevanceThreshold}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.RelevanceThreshold <= 0 {
		opts.RelevanceThreshold = DefaultRelevanceThreshold
	}
	return &Orchestrator{
		invoker:    inv,
		classifier: opts.Classifier,
		maxPar:     opts.MaxConcurrent,
		threshold:  opts.RelevanceThreshold,
		snippetLen: opts.SnippetLen,
		logger:     logging.OrDefault(opts.Logger),
	}
}

// Run executes the workflow synchronously and returns the aggregated result.
// Sequential step failures and all-agents-failed conditions are returned as
// errors; the partially filled Result is still returned for reporting.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	return o.run(ctx, req, func(core.Event) {})
}

// Stream executes the workflow asynchronously, emitting typed events on the
// returned channel. The channel is closed after the terminal event
// (workflow-complete or error). Cancelling ctx propagates to all outstanding
// agent invocations and stops new dispatches; already-completed step results
// remain in the terminal event where possible.
func (o *Orchestrator) Stream(ctx context.Context, req Request) <-chan core.Event {
	ch := make(chan core.Event, 64)
	go func() {
		defer close(ch)
		emit := func(ev core.Event) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}
		res, err := o.run(ctx, req, emit)
		runID := ""
		if res != nil {
			runID = res.RunID
		}
		// The terminal event skips the cancellation guard: the channel is
		// buffered and closes right after, so a draining consumer always
		// observes exactly one terminal event, cancelled or not.
		if err != nil {
			ch <- core.RunErrorEvent{Meta: core.NewMeta(runID), Err: err.Error()}
			return
		}
		ch <- core.WorkflowCompleteEvent{Meta: core.NewMeta(runID), FinalResult: res.FinalResult, Steps: res.Steps}
	}()
	return ch
}

// run drives one request through classification, execution and aggregation.
// It emits non-terminal events only; terminal emission belongs to Stream.
func (o *Orchestrator) run(ctx context.Context, req Request, emit func(core.Event)) (*Result, error) {
	if len(req.Agents) == 0 {
		return nil, fmt.Errorf("workflow requires at least one agent")
	}
	if req.Mode != "" && !req.Mode.Valid() {
		return nil, fmt.Errorf("unknown workflow mode %q", req.Mode)
	}

	res := &Result{
		RunID:   core.NewID(),
		Outputs: make(map[string]string),
		Errors:  make(map[string]string),
	}

	agents := req.Agents
	mode := req.Mode

	if req.SmartRouting && o.classifier != nil {
		analysis := o.classifier.Classify(ctx, req.Prompt, req.Agents)
		res.Analysis = &analysis
		emit(core.TaskAnalysisEvent{Meta: core.NewMeta(res.RunID), Analysis: analysis})
		agents = o.selectAgents(req.Agents, analysis)
		if mode == "" && analysis.SuggestedMode.Valid() {
			mode = analysis.SuggestedMode
		}
		o.logger.Info("workflow.routing",
			"run", res.RunID, "selected", len(agents), "fallback", analysis.Fallback)
	}
	if mode == "" {
		mode = core.ModeParallel
	}
	res.Mode = mode

	o.logger.Info("workflow.start", "run", res.RunID, "mode", string(mode), "agents", len(agents))

	var err error
	switch mode {
	case core.ModeSequential:
		err = o.runSequential(ctx, res, agents, req.Prompt, emit)
	default: // parallel and independent share the fan-out/fan-in path
		err = o.runFanOut(ctx, res, agents, req.Prompt, emit)
	}
	if err != nil {
		o.logger.Error("workflow.failed", "run", res.RunID, "error", err.Error())
		return res, err
	}

	o.logger.Info("workflow.complete", "run", res.RunID, "steps", len(res.Steps))
	return res, nil
}

// selectAgents filters candidates by the analysis ranking, preserving ranked
// order. An empty selection keeps all candidates: routing must never leave a
// request with nobody to answer it.
func (o *Orchestrator) selectAgents(candidates []core.AgentDescriptor, analysis core.IntentAnalysis) []core.AgentDescriptor {
	byID := make(map[string]core.AgentDescriptor, len(candidates))
	for _, a := range candidates {
		byID[a.ID] = a
	}
	var selected []core.AgentDescriptor
	for _, id := range analysis.Selected(o.threshold) {
		if a, ok := byID[id]; ok {
			selected = append(selected, a)
		}
	}
	if len(selected) == 0 {
		return candidates
	}
	return selected
}

// runSequential executes agents in the supplied order, feeding each agent's
// output forward as additional context. The first failure halts the run;
// downstream agents never see incomplete input.
func (o *Orchestrator) runSequential(ctx context.Context, res *Result, agents []core.AgentDescriptor, prompt string, emit func(core.Event)) error {
	ec := newExecutionContext(prompt)
	for i, agent := range agents {
		stepNumber := i + 1
		emit(core.AgentStartEvent{Meta: core.NewMeta(res.RunID), AgentID: agent.ID, AgentName: agent.Name, Step: stepNumber})

		input := ec.nextInput()
		output, err := o.invokeAgent(ctx, agent, input)
		if err != nil {
			res.Errors[agent.ID] = err.Error()
			emit(core.AgentErrorEvent{Meta: core.NewMeta(res.RunID), AgentID: agent.ID, AgentName: agent.Name, Err: err.Error(), Step: stepNumber})
			res.FinalResult = fmt.Sprintf("Workflow halted at step %d (%s): %v", stepNumber, agent.Name, err)
			return &core.SequentialStepError{StepNumber: stepNumber, AgentID: agent.ID, Err: err}
		}

		ec.record(agent.ID, agent.Name, output)
		res.Outputs[agent.ID] = output
		res.Steps = append(res.Steps, core.WorkflowStep{
			StepNumber:    stepNumber,
			AgentID:       agent.ID,
			AgentName:     agent.Name,
			InputSnippet:  snippet(input, o.snippetLen),
			OutputSnippet: snippet(output, o.snippetLen),
			Timestamp:     time.Now().UTC(),
		})
		emit(core.AgentResponseEvent{Meta: core.NewMeta(res.RunID), AgentID: agent.ID, AgentName: agent.Name, Text: output, Step: stepNumber})
	}

	// The last agent's output is the primary answer; earlier steps remain as
	// the audit trail.
	if len(agents) > 0 {
		res.FinalResult = res.Outputs[agents[len(agents)-1].ID]
	}
	return nil
}

// runFanOut executes all agents concurrently against the same original input
// and joins at a barrier: aggregation starts only after every dispatched
// invocation has settled. Per-agent failures are collected, not fatal, unless
// every agent fails.
func (o *Orchestrator) runFanOut(ctx context.Context, res *Result, agents []core.AgentDescriptor, prompt string, emit func(core.Event)) error {
	type outcome struct {
		output string
		err    error
	}
	outcomes := make([]outcome, len(agents))

	maxPar := o.maxPar
	if maxPar <= 0 || maxPar > len(agents) {
		maxPar = len(agents)
	}
	sem := make(chan struct{}, maxPar)
	var wg sync.WaitGroup

	for i, agent := range agents {
		if ctx.Err() != nil {
			outcomes[i] = outcome{err: &core.AgentInvocationError{AgentID: agent.ID, Err: ctx.Err()}}
			continue
		}
		emit(core.AgentStartEvent{Meta: core.NewMeta(res.RunID), AgentID: agent.ID, AgentName: agent.Name})
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, agent core.AgentDescriptor) {
			defer wg.Done()
			defer func() { <-sem }()

			output, err := o.invokeAgent(ctx, agent, prompt)
			outcomes[idx] = outcome{output: output, err: err}
			if err != nil {
				emit(core.AgentErrorEvent{Meta: core.NewMeta(res.RunID), AgentID: agent.ID, AgentName: agent.Name, Err: err.Error()})
				return
			}
			emit(core.AgentResponseEvent{Meta: core.NewMeta(res.RunID), AgentID: agent.ID, AgentName: agent.Name, Text: output})
		}(i, agent)
	}

	wg.Wait()

	failed := 0
	for i, agent := range agents {
		if outcomes[i].err != nil {
			res.Errors[agent.ID] = outcomes[i].err.Error()
			failed++
			continue
		}
		res.Outputs[agent.ID] = outcomes[i].output
	}
	if failed == len(agents) {
		res.FinalResult = "Workflow could not complete: every agent failed."
		return fmt.Errorf("workflow run %s: %w", res.RunID, core.ErrAllAgentsFailed)
	}

	res.FinalResult = mergeWithAttribution(agents, res.Outputs, res.Errors)
	return nil
}

// invokeAgent runs one agent over the input. Hitting the tool loop limit is a
// defined terminal state carrying a best-effort answer, so it is treated as
// success here.
func (o *Orchestrator) invokeAgent(ctx context.Context, agent core.AgentDescriptor, input string) (string, error) {
	text, err := o.invoker.Invoke(ctx, agent, []core.Message{core.UserMessage(input)})
	if err != nil && errors.Is(err, core.ErrToolLoopLimit) {
		return text, nil
	}
	return text, err
}

// mergeWithAttribution concatenates fan-out outputs with per-agent headers,
// in the caller-supplied agent order, including error entries so partial
// failures stay visible in the final result.
func mergeWithAttribution(agents []core.AgentDescriptor, outputs, errs map[string]string) string {
	var parts []string
	for _, agent := range agents {
		if out, ok := outputs[agent.ID]; ok {
			parts = append(parts, fmt.Sprintf("## %s\n%s", agent.Name, out))
			continue
		}
		if msg, ok := errs[agent.ID]; ok {
			parts = append(parts, fmt.Sprintf("## %s (unavailable)\n%s", agent.Name, msg))
		}
	}
	return strings.Join(parts, "\n\n")
}
