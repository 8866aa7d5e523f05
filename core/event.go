package core

import "time"

// Event is one entry in a run's ordered progress stream. Each concrete event
// type carries only the fields its kind needs; the closed set is enforced by
// the unexported marker method. Events are immutable after emission.
//
// Consumers must treat WorkflowCompleteEvent, ConsensusReachedEvent and
// RunErrorEvent as terminal: no further events arrive after one of them.
type Event interface {
	// Type returns the wire identifier for this event kind.
	Type() string
	// Terminal reports whether this event ends the stream.
	Terminal() bool
	// EventMeta returns the identity fields shared by every event.
	EventMeta() Meta
	isEvent()
}

// Meta carries the fields common to every event.
type Meta struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMeta stamps a fresh event identity bound to a run.
func NewMeta(runID string) Meta {
	return Meta{ID: NewID(), RunID: runID, Timestamp: time.Now().UTC()}
}

// EventMeta implements the accessor half of Event; embedding Meta gives
// every concrete event type this method.
func (m Meta) EventMeta() Meta { return m }

// TaskAnalysisEvent reports the smart-routing classification outcome.
type TaskAnalysisEvent struct {
	Meta
	Analysis IntentAnalysis `json:"analysis"`
}

// AgentStartEvent announces that an agent invocation has been dispatched.
type AgentStartEvent struct {
	Meta
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Step      int    `json:"step,omitempty"`
}

// AgentResponseEvent carries one agent's completed reply.
type AgentResponseEvent struct {
	Meta
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Text      string `json:"text"`
	Step      int    `json:"step,omitempty"`
}

// AgentErrorEvent records a single agent's failure. The stream continues for
// the remaining participants unless the error is fatal to the whole run.
type AgentErrorEvent struct {
	Meta
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Err       string `json:"error"`
	Step      int    `json:"step,omitempty"`
}

// WorkflowCompleteEvent is the successful terminal event of a workflow run.
type WorkflowCompleteEvent struct {
	Meta
	FinalResult string         `json:"final_result"`
	Steps       []WorkflowStep `json:"intermediate_steps,omitempty"`
}

// RunErrorEvent is the failing terminal event of a workflow or debate run.
type RunErrorEvent struct {
	Meta
	Err string `json:"error"`
}

// DebateStartEvent announces topic and participant count.
type DebateStartEvent struct {
	Meta
	Topic        string `json:"topic"`
	Participants int    `json:"participants"`
}

// AgentPositionEvent carries one agent's initial position statement.
type AgentPositionEvent struct {
	Meta
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Text      string `json:"text"`
	Round     int    `json:"round"`
}

// AgentRebuttalEvent carries one agent's rebuttal for a round.
type AgentRebuttalEvent struct {
	Meta
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Text      string `json:"text"`
	Round     int    `json:"round"`
}

// ConsensusReachedEvent is the successful terminal event of a debate run.
type ConsensusReachedEvent struct {
	Meta
	Consensus ConsensusResult `json:"consensus"`
}

// Wire identifiers. These are part of the external streaming contract and
// must not change between releases.
func (TaskAnalysisEvent) Type() string     { return "task-analysis" }
func (AgentStartEvent) Type() string       { return "agent-start" }
func (AgentResponseEvent) Type() string    { return "agent-response" }
func (AgentErrorEvent) Type() string       { return "agent-error" }
func (WorkflowCompleteEvent) Type() string { return "workflow-complete" }
func (RunErrorEvent) Type() string         { return "error" }
func (DebateStartEvent) Type() string      { return "debate-start" }
func (AgentPositionEvent) Type() string    { return "agent-position" }
func (AgentRebuttalEvent) Type() string    { return "agent-rebuttal" }
func (ConsensusReachedEvent) Type() string { return "consensus-reached" }

func (TaskAnalysisEvent) Terminal() bool     { return false }
func (AgentStartEvent) Terminal() bool       { return false }
func (AgentResponseEvent) Terminal() bool    { return false }
func (AgentErrorEvent) Terminal() bool       { return false }
func (WorkflowCompleteEvent) Terminal() bool { return true }
func (RunErrorEvent) Terminal() bool         { return true }
func (DebateStartEvent) Terminal() bool      { return false }
func (AgentPositionEvent) Terminal() bool    { return false }
func (AgentRebuttalEvent) Terminal() bool    { return false }
func (ConsensusReachedEvent) Terminal() bool { return true }

func (TaskAnalysisEvent) isEvent()     {}
func (AgentStartEvent) isEvent()       {}
func (AgentResponseEvent) isEvent()    {}
func (AgentErrorEvent) isEvent()       {}
func (WorkflowCompleteEvent) isEvent() {}
func (RunErrorEvent) isEvent()         {}
func (DebateStartEvent) isEvent()      {}
func (AgentPositionEvent) isEvent()    {}
func (AgentRebuttalEvent) isEvent()    {}
func (ConsensusReachedEvent) isEvent() {}
