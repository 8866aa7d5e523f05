package workflow

import (
	"fmt"
	"strings"
)

// snippetLen default for step audit entries.
const defaultSnippetLen = 200

// executionContext accumulates the original input and per-agent outputs for
// the duration of one run. It is owned exclusively by that run and discarded
// at request end, so no locking is needed.
type executionContext struct {
	input   string
	order   []string
	outputs map[string]string
	names   map[string]string
}

func newExecutionContext(input string) *executionContext {
	return &executionContext{
		input:   input,
		outputs: make(map[string]string),
		names:   make(map[string]string),
	}
}

// record stores an agent's output, preserving completion order.
func (ec *executionContext) record(agentID, agentName, output string) {
	if _, seen := ec.outputs[agentID]; !seen {
		ec.order = append(ec.order, agentID)
	}
	ec.outputs[agentID] = output
	ec.names[agentID] = agentName
}

// nextInput composes the input for the next sequential step: the original
// prompt with every prior output appended as additional context, never
// replacing the prompt itself.
func (ec *executionContext) nextInput() string {
	if len(ec.order) == 0 {
		return ec.input
	}
	var b strings.Builder
	b.WriteString(ec.input)
	for _, id := range ec.order {
		fmt.Fprintf(&b, "\n\n--- Context from %s ---\n%s", ec.names[id], ec.outputs[id])
	}
	return b.String()
}

// snippet truncates s for audit log entries.
func snippet(s string, max int) string {
	if max <= 0 {
		max = defaultSnippetLen
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
