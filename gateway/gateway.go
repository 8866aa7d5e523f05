// Package gateway defines the single external interface the orchestration
// core requires from the LLM-provider integration layer: call a model with a
// message list and get a reply. Provider selection, API keys and rate
// limiting live behind the concrete adapters (see the openai and anthropic
// subpackages).
package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/colloquyhq/colloquy/core"
)

// Gateway performs one model invocation. Implementations must respect ctx
// cancellation and return an error for any transport or provider failure;
// retries are the caller's policy, never the gateway's.
type Gateway interface {
	Call(ctx context.Context, modelID string, messages []core.Message, temperature float64) (string, error)
}

// Func adapts a plain function to the Gateway interface.
type Func func(ctx context.Context, modelID string, messages []core.Message, temperature float64) (string, error)

// Call implements Gateway.
func (f Func) Call(ctx context.Context, modelID string, messages []core.Message, temperature float64) (string, error) {
	return f(ctx, modelID, messages, temperature)
}

// CallRecord captures one request a Scripted gateway served, for assertions.
type CallRecord struct {
	ModelID     string
	Messages    []core.Message
	Temperature float64
}

// Scripted is an in-memory Gateway for tests and examples. Replies are served
// from a FIFO script when present, then from a per-prompt response map keyed
// by the last message's content, then from a deterministic echo.
type Scripted struct {
	mu        sync.Mutex
	script    []string
	responses map[string]string
	failWith  error
	calls     []CallRecord
}

// NewScripted constructs an empty scripted gateway.
func NewScripted() *Scripted {
	return &Scripted{responses: make(map[string]string)}
}

// Enqueue appends replies to the FIFO script.
func (s *Scripted) Enqueue(replies ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, replies...)
	return s
}

// AddResponse registers a deterministic reply for a prompt.
func (s *Scripted) AddResponse(prompt, reply string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[prompt] = reply
	return s
}

// FailWith makes every subsequent call return err.
func (s *Scripted) FailWith(err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
	return s
}

// Calls returns a snapshot of every request served so far.
func (s *Scripted) Calls() []CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallRecord, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of requests served so far.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Call implements Gateway.
func (s *Scripted) Call(ctx context.Context, modelID string, messages []core.Message, temperature float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]core.Message, len(messages))
	copy(msgs, messages)
	s.calls = append(s.calls, CallRecord{ModelID: modelID, Messages: msgs, Temperature: temperature})

	if s.failWith != nil {
		return "", s.failWith
	}
	if len(s.script) > 0 {
		reply := s.script[0]
		s.script = s.script[1:]
		return reply, nil
	}
	var last string
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	if reply, ok := s.responses[last]; ok {
		return reply, nil
	}
	return fmt.Sprintf("Scripted reply to: %s", last), nil
}
