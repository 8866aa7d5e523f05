// Package openai implements gateway.Gateway using the OpenAI Chat
// Completions API via the official SDK. Tool use is carried in the text
// protocol by the orchestration core, so the adapter intentionally stays a
// plain message-in / text-out bridge.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/colloquyhq/colloquy/core"
)

// Options configure the OpenAI gateway adapter.
type Options struct {
	// APIKey overrides the OPENAI_API_KEY environment lookup.
	APIKey string
	// DefaultModel is used when a call supplies an empty model id.
	DefaultModel string
	// MaxCompletionTokens caps the reply length.
	MaxCompletionTokens int64
}

// Gateway wraps the OpenAI Chat Completions API behind the generic
// gateway.Gateway interface.
type Gateway struct {
	client *openai.Client
	opts   Options
}

// New creates an OpenAI gateway using the default client environment.
func New(optFns ...func(o *Options)) *Gateway {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)
	return &Gateway{client: &client, opts: opts}
}

// NewFromClient creates an OpenAI gateway from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Gateway {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		DefaultModel:        openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 4096,
	}
}

// Call implements gateway.Gateway with a non-streaming completion.
func (g *Gateway) Call(ctx context.Context, modelID string, messages []core.Message, temperature float64) (string, error) {
	model := modelID
	if model == "" {
		model = g.opts.DefaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		Messages:            buildMessages(messages),
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// buildMessages converts the neutral message list into SDK message unions.
func buildMessages(messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
