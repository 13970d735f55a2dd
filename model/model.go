// Package model provides generation-model clients for the agent pipeline.
//
// A Client turns an ordered list of role-tagged messages into generated text.
// Implementations: AnthropicClient (Claude API) and OllamaClient (local
// Ollama server). Both support a streaming mode yielding incremental text
// fragments; callers that want the full text use Complete.
package model

import (
	"context"

	"github.com/fingen/agent/core"
)

// Client is the generation model collaborator.
type Client interface {
	// Complete returns the full generated text for the conversation.
	Complete(ctx context.Context, system string, msgs []core.Message) (string, error)

	// Stream generates text incrementally, invoking emit for each fragment
	// as it arrives, and returns the accumulated full text.
	Stream(ctx context.Context, system string, msgs []core.Message, emit func(chunk string)) (string, error)
}
