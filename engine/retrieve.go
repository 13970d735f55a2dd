package engine

import (
	"context"
	"log"

	"github.com/fingen/agent/core"
)

// retrieve fills state.LongTerm with the snippets relevant to the query,
// replacing whatever the previous turn left there.
//
// Absence of memory must never block response generation, so every store
// failure degrades to an empty result here rather than propagating.
func (e *Engine) retrieve(ctx context.Context, d deps, state *core.MessageState, query string) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	snippets, err := d.memory.Retrieve(callCtx, state.SessionID, query, e.cfg.TopK)
	if err != nil {
		log.Printf("[ENGINE] Retrieval failed for session %s: %v", state.SessionID, err)
		snippets = nil
	}
	state.LongTerm = snippets
}
