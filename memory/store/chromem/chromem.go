// Package chromem implements the memory.Store interface on chromem-go,
// a pure Go embedded vector database.
//
// Session isolation is enforced twice: each session gets its own collection,
// and every query carries a session_id metadata filter. Because chromem
// metadata filters are equality-only, age-based pruning is driven by a small
// SQLite catalog holding one row per entry (id, session, creation time); the
// catalog selects the expired IDs and chromem deletes them.
package chromem

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	_ "modernc.org/sqlite"

	"github.com/fingen/agent/memory"
)

// Store wraps chromem-go plus the SQLite entry catalog.
type Store struct {
	db          *chromem.DB
	catalog     *sql.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an in-memory store. Contents are lost when the process exits;
// suitable for tests and local development.
func New() (*Store, error) {
	return newStore(chromem.NewDB(), ":memory:")
}

// NewPersistent creates a store that persists the vector index and the entry
// catalog under dir.
func NewPersistent(dir string) (*Store, error) {
	db, err := chromem.NewPersistentDB(filepath.Join(dir, "index"), false)
	if err != nil {
		return nil, fmt.Errorf("open persistent index: %w", err)
	}
	return newStore(db, filepath.Join(dir, "catalog.db"))
}

func newStore(db *chromem.DB, catalogPath string) (*Store, error) {
	// WAL mode for better concurrency, same settings as a single-writer
	// SQLite workload wants.
	dsn := catalogPath + "?_journal_mode=WAL&_busy_timeout=5000"
	catalog, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	catalog.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id, created_at);
	`
	if _, err := catalog.Exec(schema); err != nil {
		catalog.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}

	return &Store{
		db:          db,
		catalog:     catalog,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// getOrCreateCollection returns the collection for a session.
// Each session gets its own collection for namespace isolation.
func (s *Store) getOrCreateCollection(sessionID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[sessionID]
	s.mu.RUnlock()

	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[sessionID]; exists {
		return col, nil
	}

	col, err := s.db.GetOrCreateCollection(
		fmt.Sprintf("session_%s", sessionID),
		nil, // No collection metadata
		nil, // No embedding func (we provide embeddings)
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s.collections[sessionID] = col
	return col, nil
}

// Add saves an entry with its embedding.
func (s *Store) Add(ctx context.Context, entry memory.Entry) error {
	col, err := s.getOrCreateCollection(entry.SessionID)
	if err != nil {
		return err
	}

	var createdAt int64
	if !entry.CreatedAt.IsZero() {
		createdAt = entry.CreatedAt.Unix()
	}

	doc := chromem.Document{
		ID:        entry.ID,
		Content:   entry.Content,
		Embedding: entry.Embedding,
		Metadata: map[string]string{
			"session_id": entry.SessionID,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	_, err = s.catalog.ExecContext(ctx,
		`INSERT OR REPLACE INTO entries (id, session_id, created_at) VALUES (?, ?, ?)`,
		entry.ID, entry.SessionID, createdAt)
	if err != nil {
		return fmt.Errorf("catalog insert: %w", err)
	}

	log.Printf("[CHROMEM] Stored entry %s for session %s", entry.ID, entry.SessionID)
	return nil
}

// Search retrieves up to limit entries for the session by vector similarity.
func (s *Store) Search(ctx context.Context, sessionID string, embedding []float32, limit int) ([]memory.Entry, error) {
	col, err := s.getOrCreateCollection(sessionID)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection size.
	if count := col.Count(); count < limit {
		limit = count
	}
	if limit <= 0 {
		return nil, nil
	}

	where := map[string]string{"session_id": sessionID}
	results, err := col.QueryEmbedding(ctx, embedding, limit, where, nil)
	if err != nil {
		if isNoMatchError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	entries := make([]memory.Entry, 0, len(results))
	for _, result := range results {
		entries = append(entries, memory.Entry{
			ID:        result.ID,
			SessionID: sessionID,
			Content:   result.Content,
			Embedding: result.Embedding,
			CreatedAt: s.lookupCreatedAt(ctx, result.ID),
		})
	}

	log.Printf("[CHROMEM] Returning %d entries for session %s", len(entries), sessionID)
	return entries, nil
}

// DeleteOlderThan removes the session's entries created before cutoff.
// Entries with an unknown creation time (created_at = 0) are kept.
func (s *Store) DeleteOlderThan(ctx context.Context, sessionID string, cutoff time.Time) (int, error) {
	rows, err := s.catalog.QueryContext(ctx,
		`SELECT id FROM entries WHERE session_id = ? AND created_at > 0 AND created_at < ?`,
		sessionID, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("catalog select: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("catalog scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("catalog rows: %w", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	col, err := s.getOrCreateCollection(sessionID)
	if err != nil {
		return 0, err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return 0, fmt.Errorf("chromem delete: %w", err)
	}

	query := fmt.Sprintf(`DELETE FROM entries WHERE id IN (%s)`, placeholders(len(ids)))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.catalog.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("catalog delete: %w", err)
	}

	log.Printf("[CHROMEM] Deleted %d entries for session %s", len(ids), sessionID)
	return len(ids), nil
}

// Close releases resources. The chromem index needs no teardown; only the
// catalog holds a handle.
func (s *Store) Close() error {
	return s.catalog.Close()
}

// lookupCreatedAt reads an entry's creation time from the catalog.
// Unknown entries report a zero time, which the pruner treats as
// never-expiring.
func (s *Store) lookupCreatedAt(ctx context.Context, id string) time.Time {
	var createdAt int64
	err := s.catalog.QueryRowContext(ctx,
		`SELECT created_at FROM entries WHERE id = ?`, id).Scan(&createdAt)
	if err != nil || createdAt == 0 {
		return time.Time{}
	}
	return time.Unix(createdAt, 0)
}

// isNoMatchError reports whether a query error means "nothing to return"
// rather than a real failure.
func isNoMatchError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") ||
		strings.Contains(msg, "no documents")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
