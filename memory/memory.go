package memory

import (
	"context"
	"time"
)

// Entry is a durable long-term memory record as stored in the vector index.
//
// A zero CreatedAt means the entry's timestamp is unknown (e.g. data written
// before timestamps were recorded). Such entries cannot be pruned by age and
// are treated as never-expiring until backfilled.
type Entry struct {
	ID        string
	SessionID string
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

// Store is the vector storage backend interface.
// Implementations: chromem.Store (embedded local index).
type Store interface {
	// Add saves an entry with its embedding.
	// The entry must have its embedding set before calling Add.
	Add(ctx context.Context, entry Entry) error

	// Search retrieves up to limit entries for the session by vector
	// similarity, most similar first. Only entries whose SessionID matches
	// are ever returned.
	Search(ctx context.Context, sessionID string, embedding []float32, limit int) ([]Entry, error)

	// DeleteOlderThan removes the session's entries created before cutoff
	// and returns how many were deleted. Entries without a timestamp are
	// never deleted.
	DeleteOlderThan(ctx context.Context, sessionID string, cutoff time.Time) (int, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: ollama.Embedder (API-based), mock.Embedder (testing).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
