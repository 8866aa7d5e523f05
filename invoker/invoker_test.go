package invoker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/gateway"
	"github.com/colloquyhq/colloquy/tool"
)

var testAgent = core.AgentDescriptor{
	ID:           "analyst",
	Name:         "Analyst",
	SystemPrompt: "You analyze data.",
	ModelID:      "test-model",
	Temperature:  0.2,
}

func newTestInvoker(gw gateway.Gateway, defs []*tool.Definition, optFns ...func(o *Options)) *Invoker {
	r := tool.NewRegistry()
	r.MustRegister(defs...)
	return New(gw, r, tool.NewExecutor(r), optFns...)
}

func readFileTool(content string) *tool.Definition {
	return &tool.Definition{
		ID:          "read_file",
		Description: "Read a file.",
		Parameters: map[string]tool.ParamSpec{
			"filename": {Type: tool.TypeString, Required: true},
		},
		Handler: func(_ context.Context, params map[string]any) (any, error) {
			return content, nil
		},
	}
}

func TestInvoke_NoToolCallsReturnsReplyVerbatim(t *testing.T) {
	gw := gateway.NewScripted().Enqueue("plain answer")
	iv := newTestInvoker(gw, nil)

	reply, err := iv.Invoke(context.Background(), testAgent, []core.Message{core.UserMessage("hi")})
	assert.NoError(t, err)
	assert.Equal(t, "plain answer", reply)
	assert.Equal(t, 1, gw.CallCount())
}

func TestInvoke_ToolRoundFeedsSubstitutedTextBack(t *testing.T) {
	gw := gateway.NewScripted().Enqueue(
		`Checking the file. [TOOL_CALL: read_file({"filename": "data.csv"})]`,
		"Summary: the file holds 2 rows.",
	)
	iv := newTestInvoker(gw, []*tool.Definition{readFileTool("a,b\n1,2")})

	reply, err := iv.Invoke(context.Background(), testAgent, []core.Message{core.UserMessage("Read data.csv and summarize")})
	assert.NoError(t, err)
	assert.Equal(t, "Summary: the file holds 2 rows.", reply)

	calls := gw.Calls()
	assert.Len(t, calls, 2)

	// The second call's history carries the substituted assistant turn and
	// the continuation prompt, never the raw marker.
	second := calls[1].Messages
	assistant := second[len(second)-2]
	assert.Equal(t, core.RoleAssistant, assistant.Role)
	assert.Contains(t, assistant.Content, `[TOOL_RESULT: "a,b\n1,2"]`)
	assert.NotContains(t, assistant.Content, "[TOOL_CALL:")
	assert.Equal(t, core.RoleUser, second[len(second)-1].Role)
}

func TestInvoke_SystemPromptAdvertisesTools(t *testing.T) {
	gw := gateway.NewScripted().Enqueue("ok")
	iv := newTestInvoker(gw, []*tool.Definition{readFileTool("x")})

	_, err := iv.Invoke(context.Background(), testAgent, []core.Message{core.UserMessage("hi")})
	assert.NoError(t, err)

	system := gw.Calls()[0].Messages[0]
	assert.Equal(t, core.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "You analyze data.")
	assert.Contains(t, system.Content, "[TOOL_CALL: <tool_id>({<json arguments>})]")
	assert.Contains(t, system.Content, "read_file")
}

func TestInvoke_DefaultSystemPromptWithoutTools(t *testing.T) {
	gw := gateway.NewScripted().Enqueue("ok")
	iv := newTestInvoker(gw, nil)

	agent := core.AgentDescriptor{ID: "a", Name: "Helper"}
	_, err := iv.Invoke(context.Background(), agent, []core.Message{core.UserMessage("hi")})
	assert.NoError(t, err)

	system := gw.Calls()[0].Messages[0]
	assert.Equal(t, "You are Helper, a helpful assistant.", system.Content)
}

func TestInvoke_RoundLimitReturnsBestEffortText(t *testing.T) {
	gw := gateway.NewScripted()
	// Every reply requests another tool call, so the loop can never settle.
	for i := 0; i < 10; i++ {
		gw.Enqueue(`again [TOOL_CALL: read_file({"filename": "x"})]`)
	}
	iv := newTestInvoker(gw, []*tool.Definition{readFileTool("content")},
		func(o *Options) { o.MaxToolRounds = 3 })

	reply, err := iv.Invoke(context.Background(), testAgent, []core.Message{core.UserMessage("go")})
	assert.ErrorIs(t, err, core.ErrToolLoopLimit)
	assert.Equal(t, 3, gw.CallCount())
	assert.Contains(t, reply, `[TOOL_RESULT: "content"]`)
	assert.True(t, strings.HasSuffix(reply, truncationNotice))
}

func TestInvoke_GatewayFailureWrapsAgentID(t *testing.T) {
	gw := gateway.NewScripted().FailWith(fmt.Errorf("rate limited"))
	iv := newTestInvoker(gw, nil)

	_, err := iv.Invoke(context.Background(), testAgent, []core.Message{core.UserMessage("hi")})
	var invErr *core.AgentInvocationError
	assert.ErrorAs(t, err, &invErr)
	assert.Equal(t, "analyst", invErr.AgentID)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestInvoke_ToolErrorStillSubstitutedInline(t *testing.T) {
	gw := gateway.NewScripted().Enqueue(
		`[TOOL_CALL: read_file({"filename": 42})]`,
		"final answer despite the error",
	)
	iv := newTestInvoker(gw, []*tool.Definition{readFileTool("x")})

	reply, err := iv.Invoke(context.Background(), testAgent, []core.Message{core.UserMessage("go")})
	assert.NoError(t, err)
	assert.Equal(t, "final answer despite the error", reply)

	assistant := gw.Calls()[1].Messages
	assert.Contains(t, assistant[len(assistant)-2].Content, "[TOOL_ERROR:")
}

func TestToolInstructions_ListsDefinitionsInOrder(t *testing.T) {
	defs := []*tool.Definition{
		{ID: "first", Description: "First tool."},
		{ID: "second", Description: "Second tool.", Parameters: map[string]tool.ParamSpec{
			"q": {Type: tool.TypeString, Required: true},
		}},
	}
	text := ToolInstructions(defs)
	assert.Less(t, strings.Index(text, "first"), strings.Index(text, "second"))
	assert.Contains(t, text, "q (string, required)")
}

func TestToolInstructions_ParametersSortedByName(t *testing.T) {
	defs := []*tool.Definition{
		{ID: "query", Description: "Query tool.", Parameters: map[string]tool.ParamSpec{
			"zone":  {Type: tool.TypeString},
			"alpha": {Type: tool.TypeNumber, Required: true},
			"mid":   {Type: tool.TypeBoolean},
		}},
	}

	text := ToolInstructions(defs)

	// Map iteration must not leak into the prompt: the rendered argument
	// list is identical on every call.
	assert.Contains(t, text, "alpha (number, required) mid (boolean) zone (string)")
	for i := 0; i < 10; i++ {
		assert.Equal(t, text, ToolInstructions(defs))
	}
}
