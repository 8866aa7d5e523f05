package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers branch on with errors.Is.
var (
	// ErrUnknownTool is returned when a tool call references an unregistered
	// tool id. Unknown ids always fail loudly, never silently.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrDuplicateToolID is returned when registering a tool whose id is
	// already taken.
	ErrDuplicateToolID = errors.New("duplicate tool id")

	// ErrToolLoopLimit marks an agent invocation that hit its bounded
	// tool-call round limit. Callers receive a best-effort partial answer
	// alongside it, not a bare failure.
	ErrToolLoopLimit = errors.New("tool loop limit exceeded")

	// ErrInsufficientParticipants is returned when a debate is started with
	// fewer than two agents.
	ErrInsufficientParticipants = errors.New("debate requires at least 2 participants")

	// ErrAllAgentsFailed is returned when every agent of an independent or
	// parallel run failed.
	ErrAllAgentsFailed = errors.New("all agents failed")

	// ErrClassification marks unusable intent-classifier output. It is
	// recovered internally by the equal-weight fallback and surfaces only in
	// logs.
	ErrClassification = errors.New("intent classification failed")
)

// AgentInvocationError wraps a gateway failure (network error, non-2xx,
// timeout) with the id of the agent whose call failed. The caller's failure
// policy decides whether the run continues.
type AgentInvocationError struct {
	AgentID string
	Err     error
}

func (e *AgentInvocationError) Error() string {
	return fmt.Sprintf("agent %s invocation failed: %v", e.AgentID, e.Err)
}

func (e *AgentInvocationError) Unwrap() error { return e.Err }

// SequentialStepError reports the step at which a sequential workflow halted.
// Downstream agents never run on a failed upstream step.
type SequentialStepError struct {
	StepNumber int
	AgentID    string
	Err        error
}

func (e *SequentialStepError) Error() string {
	return fmt.Sprintf("sequential step %d (agent %s) failed: %v", e.StepNumber, e.AgentID, e.Err)
}

func (e *SequentialStepError) Unwrap() error { return e.Err }
