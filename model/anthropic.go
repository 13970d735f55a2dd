package model

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/fingen/agent/core"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicClient generates text through the Claude API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicClient wraps an Anthropic SDK client. An empty model selects
// DefaultAnthropicModel.
func NewAnthropicClient(client *anthropic.Client, model string, maxTokens int64) *AnthropicClient {
	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens == 0 {
		maxTokens = 4096
	}
	return &AnthropicClient{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Complete returns the full generated text for the conversation.
func (c *AnthropicClient) Complete(ctx context.Context, system string, msgs []core.Message) (string, error) {
	resp, err := c.client.Messages.New(ctx, c.params(system, msgs))
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}
	return textContent(resp), nil
}

// Stream generates text incrementally, emitting each text delta.
func (c *AnthropicClient) Stream(ctx context.Context, system string, msgs []core.Message, emit func(chunk string)) (string, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(system, msgs))
	defer stream.Close()

	// Accumulate the message from events
	message := anthropic.Message{}

	for stream.Next() {
		event := stream.Current()

		// Accumulation errors are non-fatal; the deltas below still stream.
		_ = message.Accumulate(event)

		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				emit(delta.Text)
			}
		}
	}

	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("claude streaming error: %w", err)
	}

	return textContent(&message), nil
}

func (c *AnthropicClient) params(system string, msgs []core.Message) anthropic.MessageNewParams {
	apiMsgs := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case core.RoleAssistant:
			apiMsgs = append(apiMsgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			apiMsgs = append(apiMsgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  apiMsgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

// textContent concatenates the text blocks of a response.
func textContent(resp *anthropic.Message) string {
	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}
