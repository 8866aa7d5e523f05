package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/colloquyhq/colloquy/logging"
)

// DefaultHandlerTimeout bounds a single tool handler execution. A handler
// exceeding it is treated as failed; it never suspends the run indefinitely.
const DefaultHandlerTimeout = 15 * time.Second

// CallRecord is the observability record produced for each executed call.
type CallRecord struct {
	ToolID  string         `json:"tool_id"`
	Params  map[string]any `json:"params,omitempty"`
	Success bool           `json:"success"`
	Result  any            `json:"result,omitempty"`
	Err     string         `json:"error,omitempty"`
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// HandlerTimeout bounds each handler call. Zero selects
	// DefaultHandlerTimeout.
	HandlerTimeout time.Duration
	// Logger receives per-call diagnostics. Nil disables logging.
	Logger logging.Logger
}

// Executor resolves and runs parsed tool calls against a registry,
// substituting results back into the source text. The executor itself is
// side-effect free beyond invoking handlers; tool-level failures are always
// converted to inline [TOOL_ERROR: ...] markers, never raised to the caller.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	logger   logging.Logger
}

// NewExecutor creates an executor bound to a registry.
func NewExecutor(registry *Registry, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{HandlerTimeout: DefaultHandlerTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = DefaultHandlerTimeout
	}
	return &Executor{
		registry: registry,
		timeout:  opts.HandlerTimeout,
		logger:   logging.OrDefault(opts.Logger),
	}
}

// ExecuteAll parses every tool-call marker in text, executes each in source
// order and returns the fully substituted text plus one record per call.
// Text without markers is returned unchanged with a nil record list. One
// call's failure never aborts its siblings.
func (e *Executor) ExecuteAll(ctx context.Context, text string) (string, []CallRecord) {
	calls := ParseCalls(text)
	if len(calls) == 0 {
		return text, nil
	}

	var b strings.Builder
	records := make([]CallRecord, 0, len(calls))
	prev := 0
	for _, call := range calls {
		b.WriteString(text[prev:call.Start])
		substitution, record := e.executeOne(ctx, call)
		b.WriteString(substitution)
		records = append(records, record)
		prev = call.End
	}
	b.WriteString(text[prev:])
	return b.String(), records
}

// executeOne resolves, validates and runs a single call, producing the inline
// substitution marker and its observability record.
func (e *Executor) executeOne(ctx context.Context, call Call) (string, CallRecord) {
	record := CallRecord{ToolID: call.ToolID}

	if call.ParseErr != nil {
		record.Err = "invalid parameters"
		e.logger.Warn("tool.call.parse_failed", "tool", call.ToolID)
		return errorPrefix + "Invalid parameters" + markerSuffix, record
	}

	def, err := e.registry.Get(call.ToolID)
	if err != nil {
		record.Err = err.Error()
		e.logger.Warn("tool.call.unknown", "tool", call.ToolID)
		return fmt.Sprintf("%sUnknown tool '%s'%s", errorPrefix, call.ToolID, markerSuffix), record
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(call.RawParams), &params); err != nil {
		record.Err = "invalid parameters"
		e.logger.Warn("tool.call.parse_failed", "tool", call.ToolID)
		return errorPrefix + "Invalid parameters" + markerSuffix, record
	}
	record.Params = params

	if err := ValidateParams(params, def.Parameters); err != nil {
		record.Err = err.Error()
		e.logger.Warn("tool.call.validation_failed", "tool", call.ToolID, "error", err.Error())
		return errorPrefix + err.Error() + markerSuffix, record
	}

	start := time.Now()
	value, err := e.runHandler(ctx, def, params)
	if err != nil {
		record.Err = err.Error()
		e.logger.Error("tool.call.error", "tool", call.ToolID, "error", err.Error())
		return errorPrefix + err.Error() + markerSuffix, record
	}

	serialized, err := json.Marshal(value)
	if err != nil {
		record.Err = fmt.Sprintf("unserializable result: %v", err)
		e.logger.Error("tool.call.error", "tool", call.ToolID, "error", record.Err)
		return errorPrefix + record.Err + markerSuffix, record
	}

	record.Success = true
	record.Result = value
	e.logger.Info("tool.call.success", "tool", call.ToolID, "duration_ms", time.Since(start).Milliseconds())
	return resultPrefix + string(serialized) + markerSuffix, record
}

// runHandler invokes the handler with a bounded timeout and panic recovery.
func (e *Executor) runHandler(ctx context.Context, def *Definition, params map[string]any) (any, error) {
	hctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("tool.call.panic", "tool", def.ID, "recover", fmt.Sprint(r), "stack", string(debug.Stack()))
				done <- outcome{err: fmt.Errorf("tool %s panicked", def.ID)}
			}
		}()
		v, err := def.Handler(hctx, params)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-hctx.Done():
		if errors.Is(hctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("tool %s timed out after %s", def.ID, e.timeout)
		}
		return nil, hctx.Err()
	}
}
