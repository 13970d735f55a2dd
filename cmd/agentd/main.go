// Command agentd serves the conversational agent over a WebSocket endpoint.
// The dashboard UI connects to /ws, sends one JSON request per user message,
// and receives the reply as a stream of text fragments.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"

	"github.com/fingen/agent/checkpoint"
	"github.com/fingen/agent/engine"
	"github.com/fingen/agent/memory"
	ollamaembed "github.com/fingen/agent/memory/embedder/ollama"
	"github.com/fingen/agent/memory/store/chromem"
	"github.com/fingen/agent/model"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Printf("[AGENTD] Loaded configuration from .env")
	}

	ctx := context.Background()
	eng := buildEngine(ctx)

	addr := envOr("FINGEN_AGENT_ADDR", ":8091")
	srv := &http.Server{
		Addr:        addr,
		Handler:     newChatHandler(eng),
		ReadTimeout: 30 * time.Second,
	}

	log.Printf("[AGENTD] Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("[AGENTD] Server stopped: %v", err)
	}
}

// buildEngine wires the pipeline dependencies from the environment. Any
// dependency that cannot be constructed is passed to the engine as nil: the
// engine caches the build failure and answers every turn with its
// unavailability notice instead of crashing the process.
func buildEngine(ctx context.Context) *engine.Engine {
	ollamaURL := envOr("OLLAMA_BASE_URL", "http://localhost:11434")

	var client model.Client
	switch envOr("FINGEN_MODEL_BACKEND", "ollama") {
	case "anthropic":
		api := anthropic.NewClient() // reads ANTHROPIC_API_KEY
		client = model.NewAnthropicClient(&api, os.Getenv("FINGEN_ANTHROPIC_MODEL"), 0)
	default:
		client = model.NewOllamaClient(ollamaURL, os.Getenv("OLLAMA_MODEL"), envFloat("OLLAMA_TEMPERATURE", 0.7))
	}

	embedder := ollamaembed.New(ollamaURL, os.Getenv("FINGEN_EMBEDDING_MODEL"), 0)

	var mem engine.MemoryManager
	store, err := chromem.NewPersistent(envOr("FINGEN_VECTOR_STORE_DIR", "./vector_store"))
	if err != nil {
		log.Printf("[AGENTD] Vector store unavailable: %v", err)
	} else {
		manager, err := memory.NewManager(store, embedder, nil)
		if err != nil {
			log.Printf("[AGENTD] Memory manager unavailable: %v", err)
		} else {
			mem = manager
		}
	}

	var checkpoints checkpoint.Store
	checkpoints, err = checkpoint.NewSQLite(ctx, envOr("FINGEN_SQLITE_CHECKPOINT_PATH", ":memory:"))
	if err != nil {
		log.Printf("[AGENTD] Checkpoint store unavailable: %v", err)
		checkpoints = nil
	}

	cfg := &engine.Config{
		TopK:                envInt("FINGEN_RETRIEVAL_TOP_K", 0),
		PruneThreshold:      envInt("FINGEN_PRUNE_THRESHOLD", 0),
		RetentionDays:       envInt("FINGEN_RETENTION_DAYS", 0),
		RecordConversations: os.Getenv("FINGEN_RECORD_CONVERSATIONS") == "true",
	}

	return engine.New(cfg, client, mem, checkpoints)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("[AGENTD] Ignoring invalid %s=%q", key, v)
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("[AGENTD] Ignoring invalid %s=%q", key, v)
	}
	return fallback
}
