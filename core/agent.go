package core

// AgentDescriptor is the read-only configuration record for a single agent
// persona. Descriptors are owned by the surrounding persistence layer (or a
// static config file) and are immutable for the duration of an orchestration
// run.
type AgentDescriptor struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Description  string  `json:"description" yaml:"description"`
	SystemPrompt string  `json:"system_prompt" yaml:"system_prompt"`
	ModelID      string  `json:"model_id" yaml:"model_id"`
	Temperature  float64 `json:"temperature" yaml:"temperature"`
}

// Role identifies the author of a conversation message.
type Role string

// Conversation roles understood by the gateway adapters.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-attributed conversation turn. The gateway contract
// is a flat list of these, nothing richer.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage is a convenience constructor for a system turn.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage is a convenience constructor for a user turn.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage is a convenience constructor for an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
