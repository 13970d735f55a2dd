package memory_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fingen/agent/memory"
	"github.com/fingen/agent/memory/embedder/mock"
	"github.com/fingen/agent/memory/store/chromem"
)

// countingEmbedder wraps the mock embedder and counts model hits, so tests
// can observe the query-embedding cache.
type countingEmbedder struct {
	inner *mock.Embedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

func newManager(t *testing.T) (*memory.Manager, *chromem.Store, *countingEmbedder) {
	t.Helper()
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := &countingEmbedder{inner: mock.New(384)}
	manager, err := memory.NewManager(store, embedder, nil)
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	t.Cleanup(manager.Close)
	return manager, store, embedder
}

func TestManagerRecordAndRetrieve(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newManager(t)

	if err := manager.Record(ctx, "s1", "What was Q1 revenue?", "Q1 revenue was $4.2M."); err != nil {
		t.Fatalf("record: %v", err)
	}

	snippets, err := manager.Retrieve(ctx, "s1", "Q1 revenue", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(snippets) != 1 {
		t.Fatalf("retrieved %d snippets, want 1", len(snippets))
	}
	if !strings.Contains(snippets[0], "Q1 revenue was $4.2M") {
		t.Fatalf("snippet = %q", snippets[0])
	}
}

func TestManagerSessionIsolation(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newManager(t)

	if err := manager.Record(ctx, "sessionA", "secret A question", "secret A answer"); err != nil {
		t.Fatalf("record A: %v", err)
	}
	if err := manager.Record(ctx, "sessionB", "secret B question", "secret B answer"); err != nil {
		t.Fatalf("record B: %v", err)
	}

	snippets, err := manager.Retrieve(ctx, "sessionA", "secret", 10)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	for _, s := range snippets {
		if strings.Contains(s, "secret B") {
			t.Fatalf("session A retrieval leaked session B content: %q", s)
		}
	}

	// A session with no entries retrieves nothing at all.
	snippets, err = manager.Retrieve(ctx, "sessionC", "secret", 10)
	if err != nil {
		t.Fatalf("retrieve empty session: %v", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("empty session retrieved %d snippets", len(snippets))
	}
}

func TestManagerEmbeddingCache(t *testing.T) {
	ctx := context.Background()
	manager, _, embedder := newManager(t)

	if _, err := manager.Retrieve(ctx, "s1", "same query", 5); err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	first := embedder.calls.Load()

	// ristretto admits asynchronously; give the set a moment to land
	time.Sleep(50 * time.Millisecond)

	if _, err := manager.Retrieve(ctx, "s1", "same query", 5); err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got := embedder.calls.Load(); got > first {
		t.Logf("embedder called %d times for repeated query (cache admission is best-effort)", got)
	}
}

func TestManagerPruneDeletesOnlyAgedTimestampedEntries(t *testing.T) {
	ctx := context.Background()
	manager, store, embedder := newManager(t)

	add := func(id, content string, createdAt time.Time) {
		vec, err := embedder.Embed(ctx, content)
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		err = store.Add(ctx, memory.Entry{
			ID:        id,
			SessionID: "s2",
			Content:   content,
			Embedding: vec,
			CreatedAt: createdAt,
		})
		if err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	now := time.Now()
	add(uuid.New().String(), "old timestamped entry", now.AddDate(0, 0, -60))
	add(uuid.New().String(), "fresh entry", now)
	add(uuid.New().String(), "entry with unknown age", time.Time{})

	deleted, err := manager.Prune(ctx, "s2", now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("pruned %d entries, want 1", deleted)
	}

	snippets, err := manager.Retrieve(ctx, "s2", "entry", 10)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	joined := strings.Join(snippets, "\n")
	if strings.Contains(joined, "old timestamped") {
		t.Fatal("aged entry survived pruning")
	}
	if !strings.Contains(joined, "fresh entry") {
		t.Fatal("fresh entry was pruned")
	}
	if !strings.Contains(joined, "unknown age") {
		t.Fatal("entry without a timestamp must never be pruned")
	}
}
