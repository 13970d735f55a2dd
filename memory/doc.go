// Package memory provides the session-scoped long-term memory subsystem.
//
// Long-term memory is a set of durable text snippets, embedded and indexed
// for semantic similarity search. Every entry belongs to exactly one session;
// retrieval is always filtered by session so memories never leak across
// conversations.
//
// Architecture:
//   - Store: vector storage backend (chromem-go for the embedded local store)
//   - Embedder: text-to-vector conversion (Ollama for real embeddings,
//     mock for tests)
//   - Manager: orchestrates embedding, retrieval, recording, and pruning
//
// Integration with the agent engine:
//   - RETRIEVE: load the top-K session snippets relevant to the user query
//   - RECORD: optionally commit a completed exchange after a turn
//   - PRUNE: delete entries older than the retention cutoff
package memory
