package model

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fingen/agent/core"
)

// DefaultOllamaModel is used when no model is configured.
const DefaultOllamaModel = "deepseek-r1:14b"

// OllamaClient generates text through a local Ollama server's chat API.
type OllamaClient struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

// NewOllamaClient creates a client for the Ollama server at baseURL
// (e.g. "http://localhost:11434"). An empty model selects DefaultOllamaModel.
func NewOllamaClient(baseURL, model string, temperature float64) *OllamaClient {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaClient{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: 5 * time.Minute},
	}
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []map[string]string `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]float64  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Complete returns the full generated text for the conversation.
func (c *OllamaClient) Complete(ctx context.Context, system string, msgs []core.Message) (string, error) {
	resp, err := c.send(ctx, system, msgs, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return out.Message.Content, nil
}

// Stream generates text incrementally. Ollama streams newline-delimited JSON
// objects, one content fragment per line, until a final object with done=true.
func (c *OllamaClient) Stream(ctx context.Context, system string, msgs []core.Message, emit func(chunk string)) (string, error) {
	resp, err := c.send(ctx, system, msgs, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full bytes.Buffer
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("decode ollama stream chunk: %w", err)
		}
		if chunk.Message.Content != "" {
			full.WriteString(chunk.Message.Content)
			emit(chunk.Message.Content)
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read ollama stream: %w", err)
	}

	return full.String(), nil
}

func (c *OllamaClient) send(ctx context.Context, system string, msgs []core.Message, stream bool) (*http.Response, error) {
	apiMsgs := make([]map[string]string, 0, len(msgs)+1)
	if system != "" {
		apiMsgs = append(apiMsgs, map[string]string{"role": "system", "content": system})
	}
	for _, m := range msgs {
		apiMsgs = append(apiMsgs, map[string]string{"role": string(m.Role), "content": m.Content})
	}

	reqBody := ollamaChatRequest{
		Model:    c.model,
		Messages: apiMsgs,
		Stream:   stream,
	}
	if c.temperature > 0 {
		reqBody.Options = map[string]float64{"temperature": c.temperature}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, body)
	}
	return resp, nil
}
