package engine

import (
	"context"
	"log"

	"github.com/fingen/agent/core"
)

// ApologyReply is substituted as the assistant's turn when generation fails.
// The turn still completes: a user message is always followed by an
// assistant message, even on failure.
const ApologyReply = "I'm sorry, I ran into a problem while generating a response. Please try again."

// generate produces the assistant reply for the current transcript and
// appends it to short-term history, streaming fragments through emit as they
// arrive.
//
// It returns a non-nil error only when the caller's context was cancelled,
// in which case nothing has been appended and the turn must be abandoned so
// partial output never reaches the durable transcript. Any other model
// failure substitutes ApologyReply.
func (e *Engine) generate(ctx context.Context, d deps, state *core.MessageState, verifiedContext string, emit func(string)) (string, error) {
	system := e.cfg.SystemPrompt
	if verifiedContext != "" {
		system += "\n\nRelevant context from this conversation's long-term memory:\n" + verifiedContext
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	reply, err := d.model.Stream(callCtx, system, state.ShortTerm, emit)
	if err != nil {
		if ctx.Err() != nil {
			// Client went away mid-stream: do not commit a partial turn.
			return "", ctx.Err()
		}
		log.Printf("[ENGINE] Generation failed for session %s: %v", state.SessionID, err)
		reply = ApologyReply
		emit(reply)
	}

	state.AppendAssistant(reply)
	return reply, nil
}
