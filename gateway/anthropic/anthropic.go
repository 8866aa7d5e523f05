// Package anthropic implements gateway.Gateway using the Anthropic Messages
// API via the official SDK.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/colloquyhq/colloquy/core"
)

// Options configure the Anthropic gateway adapter.
type Options struct {
	// APIKey overrides the ANTHROPIC_API_KEY environment lookup.
	APIKey string
	// DefaultModel is used when a call supplies an empty model id.
	DefaultModel anthropic.Model
	// MaxTokens caps the reply length (required by the Messages API).
	MaxTokens int64
}

// Gateway wraps the Anthropic Messages API behind the generic
// gateway.Gateway interface.
type Gateway struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic gateway using the default client environment.
func New(optFns ...func(o *Options)) *Gateway {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Gateway{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic gateway from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Gateway {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		DefaultModel: anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens:    4096,
	}
}

// Call implements gateway.Gateway with a non-streaming message request.
// System turns are lifted into the dedicated system field as the Messages
// API requires.
func (g *Gateway) Call(ctx context.Context, modelID string, messages []core.Message, temperature float64) (string, error) {
	model := g.opts.DefaultModel
	if modelID != "" {
		model = anthropic.Model(modelID)
	}

	params := anthropic.MessageNewParams{
		Model:       model,
		Messages:    buildMessages(messages),
		MaxTokens:   g.opts.MaxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if system := collectSystem(messages); len(system) > 0 {
		params.System = system
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	return b.String(), nil
}

// collectSystem gathers system turns into Anthropic system blocks.
func collectSystem(messages []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role == core.RoleSystem && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}

// buildMessages converts non-system turns into SDK message params.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}
