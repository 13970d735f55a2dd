package checkpoint_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fingen/agent/checkpoint"
	"github.com/fingen/agent/core"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemory()

	if state, err := store.Get(ctx, "missing"); err != nil || state != nil {
		t.Fatalf("Get(missing) = %v, %v; want nil, nil", state, err)
	}

	state := core.NewMessageState("s1")
	state.AppendUser("hello")
	state.AppendAssistant("hi")
	if err := store.Put(ctx, state); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Mutating the caller's copy must not reach the stored snapshot
	state.AppendUser("later")

	loaded, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.ShortTerm) != 2 {
		t.Fatalf("loaded %d messages, want 2", len(loaded.ShortTerm))
	}
}

func TestSQLiteStoreDurability(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoints.db")

	store, err := checkpoint.NewSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	state := core.NewMessageState("s1")
	state.AppendUser("what is our Q1 revenue?")
	state.AppendAssistant("$4.2M")
	if err := store.Put(ctx, state); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen: the transcript must survive the restart
	store, err = checkpoint.NewSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	loaded, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil {
		t.Fatal("checkpoint lost across reopen")
	}
	if len(loaded.ShortTerm) != 2 || loaded.ShortTerm[1].Content != "$4.2M" {
		t.Fatalf("loaded state = %+v", loaded)
	}
	if loaded.SessionID != "s1" {
		t.Fatalf("session id = %q", loaded.SessionID)
	}
}

func TestSQLitePutReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	store, err := checkpoint.NewSQLite(ctx, filepath.Join(t.TempDir(), "cp.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	state := core.NewMessageState("s1")
	state.AppendUser("one")
	if err := store.Put(ctx, state); err != nil {
		t.Fatalf("put: %v", err)
	}
	state.AppendAssistant("two")
	if err := store.Put(ctx, state); err != nil {
		t.Fatalf("second put: %v", err)
	}

	loaded, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.ShortTerm) != 2 {
		t.Fatalf("loaded %d messages, want 2 (latest snapshot)", len(loaded.ShortTerm))
	}

	if other, err := store.Get(ctx, "s2"); err != nil || other != nil {
		t.Fatalf("Get(s2) = %v, %v; want nil, nil", other, err)
	}
}
