// Package engine runs the stateful conversational agent pipeline: one turn
// per incoming message, retrieve -> generate -> conditionally prune, with
// per-session checkpointed state.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fingen/agent/checkpoint"
	"github.com/fingen/agent/core"
	"github.com/fingen/agent/model"
)

// UnavailableNotice is emitted for every turn when the engine could not be
// constructed. The engine's availability is itself a degrade-gracefully
// boundary: configuration errors never surface as faults to the caller.
const UnavailableNotice = "The assistant is currently unavailable. Please try again later."

// MemoryManager is the slice of the memory subsystem the engine drives.
// *memory.Manager implements it.
type MemoryManager interface {
	Retrieve(ctx context.Context, sessionID, query string, k int) ([]string, error)
	Record(ctx context.Context, sessionID, userMessage, assistantResponse string) error
	Prune(ctx context.Context, sessionID string, cutoff time.Time) (int, error)
}

// Engine orchestrates the agent pipeline and owns all checkpoint access.
type Engine struct {
	cfg    *Config
	model  model.Client
	memory MemoryManager
	store  checkpoint.Store

	buildErr error

	// Turns for the same session are serialized: the checkpoint
	// read-modify-write is not atomic across concurrent turns, so without
	// this one turn would silently overwrite the other's appended history.
	// Different sessions run concurrently without coordination.
	//
	// The map keeps one mutex per session id seen by the process and is
	// never cleaned up; sessions have no expiry, so neither do their locks.
	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// deps is one turn's view of the engine's collaborators. Each turn takes a
// snapshot under the engine lock so that Reset can swap dependencies while
// turns are in flight; the swap applies from the next turn on.
type deps struct {
	model  model.Client
	memory MemoryManager
	store  checkpoint.Store
	err    error
}

func (e *Engine) snapshot() deps {
	e.mu.Lock()
	defer e.mu.Unlock()
	return deps{model: e.model, memory: e.memory, store: e.store, err: e.buildErr}
}

// New constructs the engine. It never fails: missing dependencies are
// recorded as a build error, and every subsequent turn short-circuits to
// UnavailableNotice until Reset provides working dependencies.
func New(cfg *Config, client model.Client, mem MemoryManager, store checkpoint.Store) *Engine {
	if cfg == nil {
		cfg = DefaultConfig
	}
	e := &Engine{
		cfg:      cfg.withDefaults(),
		model:    client,
		memory:   mem,
		store:    store,
		sessions: make(map[string]*sync.Mutex),
	}
	e.buildErr = e.checkDeps()
	if e.buildErr != nil {
		log.Printf("[ENGINE] Pipeline not available: %v", e.buildErr)
	}
	return e
}

func (e *Engine) checkDeps() error {
	switch {
	case e.model == nil:
		return fmt.Errorf("no generation model configured")
	case e.memory == nil:
		return fmt.Errorf("no memory manager configured")
	case e.store == nil:
		return fmt.Errorf("no checkpoint store configured")
	}
	return nil
}

// Reset swaps in repaired dependencies after an underlying service becomes
// available, clearing a cached build failure. Nil arguments keep the current
// dependency.
func (e *Engine) Reset(client model.Client, mem MemoryManager, store checkpoint.Store) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if client != nil {
		e.model = client
	}
	if mem != nil {
		e.memory = mem
	}
	if store != nil {
		e.store = store
	}
	e.buildErr = e.checkDeps()
	if e.buildErr == nil {
		log.Printf("[ENGINE] Pipeline available after reset")
	}
}

// HandleMessage runs one turn for the session and returns the stream of
// reply fragments. The channel is closed when the turn completes; it never
// surfaces an error, all failure states are mapped to in-band text.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, message string) <-chan string {
	out := make(chan string, e.cfg.StreamBuffer)
	go func() {
		defer close(out)
		e.runTurn(ctx, sessionID, message, out)
	}()
	return out
}

// runTurn executes the state machine for a single incoming message.
func (e *Engine) runTurn(ctx context.Context, sessionID, message string, out chan<- string) {
	d := e.snapshot()
	if d.err != nil {
		e.send(ctx, out, UnavailableNotice)
		return
	}
	if sessionID == "" {
		log.Printf("[ENGINE] Rejecting turn without session id")
		e.send(ctx, out, UnavailableNotice)
		return
	}

	// Serialize turns within the session
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	state := e.loadState(ctx, d, sessionID)
	state.AppendUser(message)

	emit := func(chunk string) { e.send(ctx, out, chunk) }

	var (
		retrieved int
		verified  string
		reply     string
	)

	for st := stateRetrieve; st != stateDone; st = nextState(st, retrieved, e.cfg.PruneThreshold) {
		switch st {
		case stateRetrieve:
			e.retrieve(ctx, d, state, message)
			retrieved = len(state.LongTerm)

		case stateGenerate:
			verified = e.verify(ctx, d, message, state.LongTerm)
			var err error
			reply, err = e.generate(ctx, d, state, verified, emit)
			if err != nil {
				// Cancelled mid-generation: abandon the turn without
				// committing anything.
				log.Printf("[ENGINE] Turn cancelled for session %s: %v", sessionID, err)
				return
			}

		case statePrune:
			cutoff := time.Now().AddDate(0, 0, -e.cfg.RetentionDays)
			if _, err := d.memory.Prune(ctx, sessionID, cutoff); err != nil {
				// Maintenance only: logged, never user-visible, never
				// fails the turn.
				log.Printf("[ENGINE] Prune failed for session %s: %v", sessionID, err)
			}
		}
	}

	e.persist(ctx, d, state)

	if e.cfg.RecordConversations && reply != "" && reply != ApologyReply {
		if err := d.memory.Record(ctx, sessionID, message, reply); err != nil {
			log.Printf("[ENGINE] Failed to record exchange for session %s: %v", sessionID, err)
		}
	}
}

// loadState reads the session's checkpoint, falling back to a fresh state
// when there is none or it fails validation. A corrupt or unreadable
// checkpoint degrades to an empty conversation rather than failing the turn.
func (e *Engine) loadState(ctx context.Context, d deps, sessionID string) *core.MessageState {
	state, err := d.store.Get(ctx, sessionID)
	if err != nil {
		log.Printf("[ENGINE] Checkpoint load failed for session %s, starting fresh: %v", sessionID, err)
		return core.NewMessageState(sessionID)
	}
	if state == nil {
		return core.NewMessageState(sessionID)
	}
	if err := state.Validate(); err != nil {
		log.Printf("[ENGINE] Invalid checkpoint for session %s, starting fresh: %v", sessionID, err)
		return core.NewMessageState(sessionID)
	}
	return state
}

// persist writes the authoritative transcript back to the checkpoint.
// LongTerm is transient per-turn working data and is not checkpointed.
func (e *Engine) persist(ctx context.Context, d deps, state *core.MessageState) {
	state.LongTerm = nil
	if err := d.store.Put(ctx, state); err != nil {
		log.Printf("[ENGINE] Checkpoint write failed for session %s: %v", state.SessionID, err)
	}
}

// send delivers a fragment unless the consumer's context is gone.
func (e *Engine) send(ctx context.Context, out chan<- string, chunk string) {
	select {
	case out <- chunk:
	case <-ctx.Done():
	}
}

func (e *Engine) sessionLock(sessionID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.sessions[sessionID] = lock
	}
	return lock
}
