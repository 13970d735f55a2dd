package engine

import "time"

// Config holds engine configuration.
type Config struct {
	// TopK is how many memory snippets retrieval asks for per turn.
	// Default: 5.
	TopK int

	// PruneThreshold triggers the prune step when the number of snippets
	// retrieved this turn reaches it (inclusive). This is a turn-local
	// proxy for "this session's memory has grown large", not an exact
	// stored-entry count. Default: 10.
	PruneThreshold int

	// RetentionDays is the long-term memory retention cutoff: entries
	// older than now minus RetentionDays are deleted when pruning runs.
	// Default: 30.
	RetentionDays int

	// RequestTimeout bounds each external model call (verification and
	// generation). Default: 60s.
	RequestTimeout time.Duration

	// SystemPrompt is the persona directive prepended to every generation
	// call. Default: DefaultSystemPrompt.
	SystemPrompt string

	// RecordConversations commits each completed exchange to long-term
	// memory after the turn. Off by default: the turn pipeline itself only
	// reads and prunes memory.
	RecordConversations bool

	// StreamBuffer is the capacity of the outgoing fragment channel.
	// Default: 16.
	StreamBuffer int
}

// DefaultConfig returns sensible defaults.
var DefaultConfig = &Config{
	TopK:           5,
	PruneThreshold: 10,
	RetentionDays:  30,
	RequestTimeout: 60 * time.Second,
	SystemPrompt:   DefaultSystemPrompt,
	StreamBuffer:   16,
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.TopK <= 0 {
		out.TopK = DefaultConfig.TopK
	}
	if out.PruneThreshold <= 0 {
		out.PruneThreshold = DefaultConfig.PruneThreshold
	}
	if out.RetentionDays <= 0 {
		out.RetentionDays = DefaultConfig.RetentionDays
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultConfig.RequestTimeout
	}
	if out.SystemPrompt == "" {
		out.SystemPrompt = DefaultConfig.SystemPrompt
	}
	if out.StreamBuffer <= 0 {
		out.StreamBuffer = DefaultConfig.StreamBuffer
	}
	return &out
}

// DefaultSystemPrompt is the persona directive for the financial reporting
// assistant.
const DefaultSystemPrompt = `You are a helpful financial reporting assistant.

GUIDELINES:
- Be conversational and concise
- Answer questions about financial reports, metrics, and analysis
- Ask clarifying questions when a request is ambiguous
- If you do not know something, say so rather than guessing`
