package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	claudeModel     = "claude-sonnet-4-20250514"
	claudeMaxTokens = 100
)

// Claude generates replies through the Anthropic Messages API. The full
// conversation is sent each call; system-role turns are folded into the
// request's system prompt, user and assistant turns are preserved in
// order.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaude creates a Claude provider with the given API key.
func NewClaude(apiKey string) *Claude {
	return &Claude{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     claudeModel,
		maxTokens: claudeMaxTokens,
	}
}

// Generate implements Provider.
func (c *Claude) Generate(ctx context.Context, history []Message) (string, error) {
	params := buildClaudeParams(c.model, c.maxTokens, history)

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func buildClaudeParams(model string, maxTokens int64, history []Message) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	for _, m := range history {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = system
	}
	return params
}
