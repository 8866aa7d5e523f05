package colloquy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/gateway"
	"github.com/colloquyhq/colloquy/tool"
	"github.com/colloquyhq/colloquy/workflow"
)

var analyst = core.AgentDescriptor{
	ID:           "analyst",
	Name:         "Analyst",
	SystemPrompt: "You analyze data.",
	ModelID:      "m-analyst",
}

var reviewer = core.AgentDescriptor{
	ID:           "reviewer",
	Name:         "Reviewer",
	SystemPrompt: "You review conclusions.",
	ModelID:      "m-reviewer",
}

func TestInvoke_WithToolRound(t *testing.T) {
	gw := gateway.NewScripted().Enqueue(
		`Let me check. [TOOL_CALL: read_file({"filename": "data.csv"})]`,
		"The file holds two rows of sample data.",
	)
	c := New(gw)

	var gotFilename string
	err := c.RegisterTool(&tool.Definition{
		ID:          "read_file",
		Name:        "Read File",
		Description: "Reads a file from the workspace.",
		Parameters: map[string]tool.ParamSpec{
			"filename": {Type: tool.TypeString, Required: true},
		},
		Handler: func(_ context.Context, params map[string]any) (any, error) {
			gotFilename = params["filename"].(string)
			return "a,b\n1,2", nil
		},
	})
	require.NoError(t, err)

	reply, err := c.Invoke(context.Background(), analyst, "Read data.csv and summarize it")

	require.NoError(t, err)
	assert.Equal(t, "The file holds two rows of sample data.", reply)
	assert.Equal(t, "data.csv", gotFilename)
	assert.Equal(t, 2, gw.CallCount())
}

func TestRegisterTool_Duplicate(t *testing.T) {
	c := New(gateway.NewScripted())
	def := &tool.Definition{
		ID:          "now",
		Name:        "Now",
		Description: "Returns the current time.",
		Handler: func(context.Context, map[string]any) (any, error) {
			return "now", nil
		},
	}

	require.NoError(t, c.RegisterTool(def))
	err := c.RegisterTool(def)

	assert.ErrorIs(t, err, core.ErrDuplicateToolID)
	assert.Len(t, c.Tools(), 1)
}

func TestRunWorkflow_Sequential(t *testing.T) {
	gw := gateway.NewScripted().Enqueue("first pass", "final verdict")
	c := New(gw, func(o *Options) {
		o.SmartRouting = false
	})

	res, err := c.RunWorkflow(context.Background(), workflow.Request{
		Agents: []core.AgentDescriptor{analyst, reviewer},
		Prompt: "Evaluate the proposal",
		Mode:   core.ModeSequential,
	})

	require.NoError(t, err)
	assert.Equal(t, "final verdict", res.FinalResult)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, "analyst", res.Steps[0].AgentID)
	assert.Equal(t, "reviewer", res.Steps[1].AgentID)
}

func TestStreamWorkflow_TerminalEventClosesChannel(t *testing.T) {
	gw := gateway.NewScripted().Enqueue("only output")
	c := New(gw, func(o *Options) {
		o.SmartRouting = false
	})

	ch := c.StreamWorkflow(context.Background(), workflow.Request{
		Agents: []core.AgentDescriptor{analyst},
		Prompt: "Evaluate the proposal",
		Mode:   core.ModeSequential,
	})

	var events []core.Event
	for ev := range ch {
		events = append(events, ev)
	}
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.Terminal())
	assert.Equal(t, "workflow-complete", last.Type())
}

func TestRunDebate(t *testing.T) {
	gw := gateway.NewScripted().Enqueue(
		"growth is worth the risk",       // analyst position
		"the downside is underpriced",    // reviewer position
		"risk framing cuts both ways",    // analyst rebuttal
		"growth cases ignore tail risk",  // reviewer rebuttal
		`{"consensus_points":["timing matters"],"conclusion":"expand cautiously","strongest":{"agent_id":"reviewer","argument":"tail risk"}}`,
	)
	c := New(gw)

	session, err := c.RunDebate(context.Background(), "Should we expand?", []core.AgentDescriptor{analyst, reviewer})

	require.NoError(t, err)
	assert.Equal(t, "Should we expand?", session.Topic)
	require.Len(t, session.Rounds, 1)
	assert.Equal(t, "expand cautiously", session.Consensus.Conclusion)
}
