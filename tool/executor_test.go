package tool

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestExecutor(t *testing.T, defs ...*Definition) *Executor {
	t.Helper()
	r := NewRegistry()
	r.MustRegister(defs...)
	return NewExecutor(r)
}

func TestExecuteAll_NoMarkersReturnsTextUnchanged(t *testing.T) {
	e := newTestExecutor(t)
	text := "a reply that never calls tools"
	out, records := e.ExecuteAll(context.Background(), text)
	assert.Equal(t, text, out)
	assert.Nil(t, records)
}

func TestExecuteAll_SuccessSubstitution(t *testing.T) {
	e := newTestExecutor(t, &Definition{
		ID:         "upper",
		Parameters: map[string]ParamSpec{"s": {Type: TypeString, Required: true}},
		Handler: func(_ context.Context, params map[string]any) (any, error) {
			return map[string]any{"result": params["s"].(string) + "!"}, nil
		},
	})

	out, records := e.ExecuteAll(context.Background(), `before [TOOL_CALL: upper({"s": "hi"})] after`)
	assert.Equal(t, `before [TOOL_RESULT: {"result":"hi!"}] after`, out)
	assert.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.Equal(t, "upper", records[0].ToolID)
}

func TestExecuteAll_UnknownTool(t *testing.T) {
	e := newTestExecutor(t)
	out, records := e.ExecuteAll(context.Background(), `[TOOL_CALL: nope({})]`)
	assert.Equal(t, `[TOOL_ERROR: Unknown tool 'nope']`, out)
	assert.Len(t, records, 1)
	assert.False(t, records[0].Success)
}

func TestExecuteAll_MalformedParams(t *testing.T) {
	e := newTestExecutor(t, &Definition{ID: "echo", Handler: noopHandler})
	out, records := e.ExecuteAll(context.Background(), `[TOOL_CALL: echo({broken)]`)
	assert.Equal(t, `[TOOL_ERROR: Invalid parameters]`, out)
	assert.Len(t, records, 1)
	assert.False(t, records[0].Success)
}

func TestExecuteAll_ValidationFailure(t *testing.T) {
	e := newTestExecutor(t, &Definition{
		ID:         "strict",
		Parameters: map[string]ParamSpec{"n": {Type: TypeInteger, Required: true}},
		Handler:    noopHandler,
	})
	out, records := e.ExecuteAll(context.Background(), `[TOOL_CALL: strict({})]`)
	assert.Contains(t, out, "[TOOL_ERROR: validation error for parameter 'n'")
	assert.False(t, records[0].Success)
}

func TestExecuteAll_HandlerError(t *testing.T) {
	e := newTestExecutor(t, &Definition{
		ID: "fail",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return nil, fmt.Errorf("disk on fire")
		},
	})
	out, records := e.ExecuteAll(context.Background(), `x [TOOL_CALL: fail({})] y`)
	assert.Equal(t, "x [TOOL_ERROR: disk on fire] y", out)
	assert.Equal(t, "disk on fire", records[0].Err)
}

func TestExecuteAll_OneFailureDoesNotAbortSiblings(t *testing.T) {
	e := newTestExecutor(t, &Definition{
		ID: "ok",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return "fine", nil
		},
	})
	out, records := e.ExecuteAll(context.Background(),
		`[TOOL_CALL: missing({})] and [TOOL_CALL: ok({})]`)
	assert.Equal(t, `[TOOL_ERROR: Unknown tool 'missing'] and [TOOL_RESULT: "fine"]`, out)
	assert.Len(t, records, 2)
	assert.False(t, records[0].Success)
	assert.True(t, records[1].Success)
}

func TestExecuteAll_PanicRecovered(t *testing.T) {
	e := newTestExecutor(t, &Definition{
		ID: "boom",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			panic("kaboom")
		},
	})
	out, records := e.ExecuteAll(context.Background(), `[TOOL_CALL: boom({})]`)
	assert.Equal(t, `[TOOL_ERROR: tool boom panicked]`, out)
	assert.False(t, records[0].Success)
}

func TestExecuteAll_HandlerTimeout(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(&Definition{
		ID: "slow",
		Handler: func(ctx context.Context, _ map[string]any) (any, error) {
			select {
			case <-time.After(5 * time.Second):
				return "too late", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})
	e := NewExecutor(r, func(o *ExecutorOptions) {
		o.HandlerTimeout = 20 * time.Millisecond
	})

	out, records := e.ExecuteAll(context.Background(), `[TOOL_CALL: slow({})]`)
	assert.Contains(t, out, "[TOOL_ERROR: tool slow timed out after")
	assert.False(t, records[0].Success)
}

func TestExecuteAll_ResultNeverReparsedAsCall(t *testing.T) {
	e := newTestExecutor(t, &Definition{
		ID: "gen",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			// A result that textually resembles a call marker.
			return `[TOOL_CALL: gen({})]`, nil
		},
	})
	out, _ := e.ExecuteAll(context.Background(), `[TOOL_CALL: gen({})]`)
	// Substituted once; the embedded lookalike stays inert inside the
	// TOOL_RESULT payload for this pass.
	assert.Equal(t, `[TOOL_RESULT: "[TOOL_CALL: gen({})]"]`, out)
}
