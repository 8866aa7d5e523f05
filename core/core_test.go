package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeValid(t *testing.T) {
	assert.True(t, ModeIndependent.Valid())
	assert.True(t, ModeSequential.Valid())
	assert.True(t, ModeParallel.Valid())
	assert.False(t, Mode("").Valid())
	assert.False(t, Mode("quantum").Valid())
}

func TestEventWireTypes(t *testing.T) {
	cases := []struct {
		event    Event
		wireType string
		terminal bool
	}{
		{TaskAnalysisEvent{}, "task-analysis", false},
		{AgentStartEvent{}, "agent-start", false},
		{AgentResponseEvent{}, "agent-response", false},
		{AgentErrorEvent{}, "agent-error", false},
		{WorkflowCompleteEvent{}, "workflow-complete", true},
		{RunErrorEvent{}, "error", true},
		{DebateStartEvent{}, "debate-start", false},
		{AgentPositionEvent{}, "agent-position", false},
		{AgentRebuttalEvent{}, "agent-rebuttal", false},
		{ConsensusReachedEvent{}, "consensus-reached", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.wireType, tc.event.Type())
		assert.Equal(t, tc.terminal, tc.event.Terminal(), tc.wireType)
	}
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta("run-1")

	assert.Equal(t, "run-1", meta.RunID)
	assert.NotEmpty(t, meta.ID)
	assert.False(t, meta.Timestamp.IsZero())

	other := NewMeta("run-1")
	assert.NotEqual(t, meta.ID, other.ID)
}

func TestEventMetaAccessor(t *testing.T) {
	meta := NewMeta("run-7")
	var ev Event = AgentStartEvent{Meta: meta, AgentID: "ba"}

	assert.Equal(t, meta, ev.EventMeta())
	assert.Equal(t, "run-7", ev.EventMeta().RunID)
}

func TestAgentErrorEventJSON(t *testing.T) {
	ev := AgentErrorEvent{AgentID: "ba", AgentName: "Analyst", Err: "boom"}

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error":"boom"`)
	assert.Contains(t, string(data), `"agent_id":"ba"`)
}

func TestInvocationErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &AgentInvocationError{AgentID: "ba", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "agent ba invocation failed")

	stepErr := &SequentialStepError{StepNumber: 2, AgentID: "ra", Err: err}
	var invErr *AgentInvocationError
	assert.ErrorAs(t, stepErr, &invErr)
	assert.Equal(t, "ba", invErr.AgentID)
	assert.Contains(t, stepErr.Error(), "sequential step 2")
}

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, Message{Role: RoleSystem, Content: "s"}, SystemMessage("s"))
	assert.Equal(t, Message{Role: RoleUser, Content: "u"}, UserMessage("u"))
	assert.Equal(t, Message{Role: RoleAssistant, Content: "a"}, AssistantMessage("a"))
}
