package core

import "time"

// Mode selects how a workflow run schedules its agents.
type Mode string

// Workflow execution modes.
const (
	// ModeIndependent invokes every agent with the same input and no shared
	// context; failures are collected per agent.
	ModeIndependent Mode = "independent"
	// ModeSequential pipes each agent's output into the next agent's input;
	// a failed step halts the run.
	ModeSequential Mode = "sequential"
	// ModeParallel fans all agents out concurrently against the original
	// input and joins results at the end.
	ModeParallel Mode = "parallel"
)

// Valid reports whether m is one of the defined workflow modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeIndependent, ModeSequential, ModeParallel:
		return true
	}
	return false
}

// WorkflowStep is one append-only audit log entry produced per agent
// invocation in sequential mode. Ordering matches execution order.
type WorkflowStep struct {
	StepNumber    int       `json:"step_number"`
	AgentID       string    `json:"agent_id"`
	AgentName     string    `json:"agent_name"`
	InputSnippet  string    `json:"input_snippet"`
	OutputSnippet string    `json:"output_snippet"`
	Timestamp     time.Time `json:"timestamp"`
}

// AgentRanking is one entry of the intent classifier's relevance list.
type AgentRanking struct {
	AgentID string `json:"agent_id"`
	// Score is a relevance value in [0,100].
	Score  int    `json:"score"`
	Reason string `json:"reason,omitempty"`
}

// IntentAnalysis is the outcome of the smart-routing classification step.
// Fallback is set when the classifier output was unusable and all candidates
// were selected with equal weight instead.
type IntentAnalysis struct {
	Rankings      []AgentRanking `json:"rankings"`
	SuggestedMode Mode           `json:"suggested_mode"`
	Fallback      bool           `json:"fallback,omitempty"`
}

// Selected returns the IDs of agents scoring at or above min, ordered by
// descending score. An empty result means no candidate cleared the bar; the
// orchestrator treats that the same as the fallback case.
func (a IntentAnalysis) Selected(min int) []string {
	var ids []string
	for _, r := range a.Rankings {
		if r.Score >= min {
			ids = append(ids, r.AgentID)
		}
	}
	return ids
}

// Attribution ties a piece of text to the agent that produced it.
type Attribution struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name,omitempty"`
	Text      string `json:"text"`
}

// ConsensusResult is the structured outcome of a debate's synthesis step. It
// is always well-formed: full disagreement yields empty ConsensusPoints, not
// an error.
type ConsensusResult struct {
	ConsensusPoints   []string    `json:"consensus_points"`
	Conclusion        string      `json:"conclusion"`
	StrongestArgument Attribution `json:"strongest_argument"`
}
