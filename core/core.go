// Package core provides the foundational domain types shared by the Colloquy
// orchestration engine. It defines the core abstractions for:
//
//   - Agent descriptors (read-only persona configuration records)
//   - Messages (role-based conversation turns exchanged with the LLM gateway)
//   - Run events (typed, ordered progress records streamed to clients)
//   - Workflow modes, steps and consensus structures
//   - The error taxonomy used across the tool, invoker, workflow and debate layers
//
// The package intentionally keeps implementation concerns (tool execution,
// gateway integration, orchestration) out of scope, exposing small value types
// so higher layers can depend on it without cycles.
package core

import "github.com/google/uuid"

// NewID generates a new unique identifier for runs, invocations and events.
func NewID() string { return uuid.NewString() }
