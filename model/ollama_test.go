package model_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fingen/agent/core"
	"github.com/fingen/agent/model"
)

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["stream"] != false {
			t.Errorf("stream = %v, want false", req["stream"])
		}
		fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":"full answer"},"done":true}`)
	}))
	defer srv.Close()

	client := model.NewOllamaClient(srv.URL, "m", 0)
	out, err := client.Complete(context.Background(), "be brief", []core.Message{core.UserMessage("hi")})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "full answer" {
		t.Fatalf("out = %q", out)
	}
}

func TestOllamaStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hello"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":" world"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	client := model.NewOllamaClient(srv.URL, "m", 0)
	var chunks []string
	full, err := client.Stream(context.Background(), "", []core.Message{core.UserMessage("hi")}, func(c string) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if full != "Hello world" {
		t.Fatalf("full = %q", full)
	}
	if strings.Join(chunks, "") != "Hello world" {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestOllamaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := model.NewOllamaClient(srv.URL, "m", 0)
	if _, err := client.Complete(context.Background(), "", []core.Message{core.UserMessage("hi")}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestOllamaSystemPromptBecomesLeadingMessage(t *testing.T) {
	var gotMessages []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []map[string]string `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotMessages = req.Messages
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"ok"},"done":true}`)
	}))
	defer srv.Close()

	client := model.NewOllamaClient(srv.URL, "m", 0)
	history := []core.Message{
		core.UserMessage("first"),
		core.AssistantMessage("second"),
		core.UserMessage("third"),
	}
	if _, err := client.Complete(context.Background(), "persona", history); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if len(gotMessages) != 4 {
		t.Fatalf("sent %d messages, want 4", len(gotMessages))
	}
	if gotMessages[0]["role"] != "system" || gotMessages[0]["content"] != "persona" {
		t.Fatalf("leading message = %v, want the system instruction", gotMessages[0])
	}
	for i, want := range []string{"user", "assistant", "user"} {
		if gotMessages[i+1]["role"] != want {
			t.Fatalf("message %d role = %s, want %s", i+1, gotMessages[i+1]["role"], want)
		}
	}
}
