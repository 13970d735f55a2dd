package memory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
)

// Manager orchestrates memory operations on top of a Store and an Embedder.
//
// It owns the embedding step so callers deal only in text: retrieval embeds
// the query, recording embeds the stored content. Query embeddings are cached
// so repeated or refined questions in a session do not re-hit the embedding
// model.
type Manager struct {
	store      Store
	embedder   Embedder
	config     *Config
	embedCache *ristretto.Cache
}

// Config holds Manager configuration.
type Config struct {
	// EmbedCacheBytes bounds the query-embedding cache. Default: 8 MiB.
	EmbedCacheBytes int64
}

// DefaultConfig returns sensible defaults.
var DefaultConfig = &Config{
	EmbedCacheBytes: 8 << 20,
}

// NewManager creates a Manager.
func NewManager(store Store, embedder Embedder, config *Config) (*Manager, error) {
	if config == nil {
		config = DefaultConfig
	}
	cacheBytes := config.EmbedCacheBytes
	if cacheBytes <= 0 {
		cacheBytes = DefaultConfig.EmbedCacheBytes
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     cacheBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Manager{
		store:      store,
		embedder:   embedder,
		config:     config,
		embedCache: cache,
	}, nil
}

// Retrieve finds up to k memory snippets for the session that are
// semantically similar to the query, most similar first.
func (m *Manager) Retrieve(ctx context.Context, sessionID, query string, k int) ([]string, error) {
	embedding, err := m.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	entries, err := m.store.Search(ctx, sessionID, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search store: %w", err)
	}

	log.Printf("[MEMORY] Retrieved %d entries for session %s query %q",
		len(entries), sessionID, truncateLog(query, 50))

	snippets := make([]string, 0, len(entries))
	for _, e := range entries {
		snippets = append(snippets, e.Content)
	}
	return snippets, nil
}

// Record commits a completed user/assistant exchange to long-term memory as
// a single entry attributed to the session.
func (m *Manager) Record(ctx context.Context, sessionID, userMessage, assistantResponse string) error {
	content := fmt.Sprintf("User: %s\nAssistant: %s", userMessage, assistantResponse)

	embedding, err := m.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed exchange: %w", err)
	}

	entry := Entry{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Content:   content,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}
	if err := m.store.Add(ctx, entry); err != nil {
		return fmt.Errorf("store exchange: %w", err)
	}

	log.Printf("[MEMORY] Recorded exchange for session %s (entry %s)", sessionID, entry.ID)
	return nil
}

// Prune deletes the session's entries older than cutoff. Entries without a
// timestamp are left in place.
func (m *Manager) Prune(ctx context.Context, sessionID string, cutoff time.Time) (int, error) {
	deleted, err := m.store.DeleteOlderThan(ctx, sessionID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune session %s: %w", sessionID, err)
	}
	if deleted > 0 {
		log.Printf("[MEMORY] Pruned %d entries for session %s older than %s",
			deleted, sessionID, cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// Close releases the manager's resources. The underlying store is owned by
// the caller and is not closed here.
func (m *Manager) Close() {
	m.embedCache.Close()
}

// embed returns the embedding for text, consulting the cache first.
func (m *Manager) embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := m.embedCache.Get(text); ok {
		if embedding, ok := cached.([]float32); ok {
			return embedding, nil
		}
	}

	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	m.embedCache.Set(text, embedding, int64(len(embedding)*4))
	return embedding, nil
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
