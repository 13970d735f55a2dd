package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fingen/agent/core"
)

// noRelevantContext is the sentinel the verification model emits when none
// of the retrieved snippets relate to the query. It maps to empty verified
// context.
const noRelevantContext = "NO_RELEVANT_CONTEXT"

const verifyInstruction = `You are filtering retrieved memory for a conversation.
Given a user question and candidate memory snippets, return only the portions
of the snippets that are relevant to answering the question, verbatim.
If none of the snippets are relevant, reply with exactly %s and nothing else.

Question:
%s

Candidate snippets:
%s`

// verify filters the retrieved snippets down to those relevant to the query.
//
// An empty snippet set is returned as empty context without a model call.
// If the model call fails, the whole unverified snippet text is used instead:
// verification is an accuracy optimization, not a correctness gate, so its
// failure must not drop potentially useful context.
func (e *Engine) verify(ctx context.Context, d deps, query string, snippets []string) string {
	if len(snippets) == 0 {
		return ""
	}

	raw := strings.Join(snippets, "\n\n")
	prompt := fmt.Sprintf(verifyInstruction, noRelevantContext, query, raw)

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	out, err := d.model.Complete(callCtx, "", []core.Message{core.UserMessage(prompt)})
	if err != nil {
		log.Printf("[ENGINE] Context verification failed, using unverified snippets: %v", err)
		return raw
	}

	out = strings.TrimSpace(out)
	if out == "" || strings.Contains(out, noRelevantContext) {
		return ""
	}
	return out
}
